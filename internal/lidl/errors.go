package lidl

import "fmt"

// ErrorKind enumerates why a receipt could not be parsed. Every kind is
// receipt-fatal: no partial receipt is ever returned.
type ErrorKind string

const (
	KindMissingAttribute             ErrorKind = "MISSING_ATTRIBUTE"
	KindMissingCurrency              ErrorKind = "MISSING_CURRENCY"
	KindDiscountWithoutPrecedingItem ErrorKind = "DISCOUNT_WITHOUT_PRECEDING_ITEM"
	KindUnparsableNumber             ErrorKind = "UNPARSABLE_NUMBER"
	KindNumberFormat                 ErrorKind = "NUMBER_FORMAT"
	KindSchema                       ErrorKind = "SCHEMA"
	KindMalformed                    ErrorKind = "MALFORMED"
)

// ParseError carries the kind plus the attribute name, field path or context
// that failed.
type ParseError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "could not parse receipt: " + describe(e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches another *ParseError of the same kind; a target without Detail
// matches any detail.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

// Sentinels for errors.Is.
var (
	ErrMissingAttribute             = &ParseError{Kind: KindMissingAttribute}
	ErrMissingCurrency              = &ParseError{Kind: KindMissingCurrency}
	ErrDiscountWithoutPrecedingItem = &ParseError{Kind: KindDiscountWithoutPrecedingItem}
	ErrUnparsableNumber             = &ParseError{Kind: KindUnparsableNumber}
	ErrNumberFormat                 = &ParseError{Kind: KindNumberFormat}
	ErrSchema                       = &ParseError{Kind: KindSchema}
	ErrMalformed                    = &ParseError{Kind: KindMalformed}
)

func missingAttribute(name string) error {
	return &ParseError{Kind: KindMissingAttribute, Detail: name}
}

func unparsableNumber(context string, err error) error {
	return &ParseError{Kind: KindUnparsableNumber, Detail: context, Err: err}
}

func numberFormat(field string, err error) error {
	return &ParseError{Kind: KindNumberFormat, Detail: field, Err: err}
}

func describe(kind ErrorKind) string {
	switch kind {
	case KindMissingAttribute:
		return "cannot find attribute in element"
	case KindMissingCurrency:
		return "could not find currency in receipt"
	case KindDiscountWithoutPrecedingItem:
		return "found discount but there are no products before it"
	case KindUnparsableNumber:
		return "cannot parse number"
	case KindNumberFormat:
		return "numeric field is not a decimal"
	case KindSchema:
		return "payload does not match receipt schema"
	case KindMalformed:
		return "malformed document"
	default:
		return string(kind)
	}
}
