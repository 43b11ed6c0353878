// Package locale converts numbers printed with a comma decimal separator.
package locale

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNumberFormat is the kind shared by every conversion failure.
var ErrNumberFormat = errors.New("number format")

// plain decimals only: no exponents, NaN/Inf, hex floats or digit grouping
var reDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// NumberFormatError reports a string that is not a comma-decimal number.
type NumberFormatError struct {
	Field string
	Value string
	Err   error
}

func (e *NumberFormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("number format: field %s: cannot parse %q as decimal", e.Field, e.Value)
	}
	return fmt.Sprintf("number format: cannot parse %q as decimal", e.Value)
}

func (e *NumberFormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNumberFormat
}

func (e *NumberFormatError) Is(target error) bool {
	return target == ErrNumberFormat
}

// ParseDecimal parses s after substituting every comma with a period.
// "0,957" -> 0.957, "-7,92" -> -7.92.
func ParseDecimal(s string) (float64, error) {
	return ParseField("", s)
}

// ParseField is ParseDecimal with the failing field named in the error.
func ParseField(field, s string) (float64, error) {
	normalized := strings.ReplaceAll(s, ",", ".")
	if !reDecimal.MatchString(normalized) {
		return 0, &NumberFormatError{Field: field, Value: s}
	}
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, &NumberFormatError{Field: field, Value: s, Err: err}
	}
	return f, nil
}

// IsFractional reports whether the raw printed value carries a decimal comma.
func IsFractional(s string) bool {
	return strings.Contains(s, ",")
}
