package lidl

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/internal/locale"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/utils"
)

// Option configures DecodeReceipt and DecodeReceiptsPage.
type Option func(*decodeOptions)

type decodeOptions struct {
	location   *time.Location
	skipSchema bool
}

// WithLocation sets the zone the backend's wall-clock timestamps belong to.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *decodeOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithoutSchema skips the structural schema check.
func WithoutSchema() Option {
	return func(o *decodeOptions) { o.skipSchema = true }
}

func buildOptions(opts []Option) decodeOptions {
	o := decodeOptions{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DecodeReceipt validates, unmarshals and normalizes one ticket payload.
func DecodeReceipt(data []byte, opts ...Option) (*receipt.Detailed, error) {
	o := buildOptions(opts)
	if !o.skipSchema {
		if err := ValidatePayload(data); err != nil {
			return nil, err
		}
	}
	var raw RawReceipt
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Kind: KindMalformed, Detail: "json", Err: err}
	}
	return raw.Normalize(o.location)
}

// Normalize converts the string-typed mirror into the canonical model in one
// pass. The first unparsable field aborts the conversion and is named by its
// JSON path.
func (r *RawReceipt) Normalize(loc *time.Location) (*receipt.Detailed, error) {
	date, err := ParseBackendTime(r.Date, loc)
	if err != nil {
		return nil, &ParseError{Kind: KindMalformed, Detail: "date", Err: err}
	}

	items := make([]receipt.Item, 0, len(r.ItemsLine))
	for i, raw := range r.ItemsLine {
		item, err := raw.normalize(fmt.Sprintf("itemsLine[%d]", i))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	out := &receipt.Detailed{
		ID:       r.ID,
		Items:    items,
		Date:     date,
		Currency: receipt.Currency{ID: r.Currency.Code, Symbol: r.Currency.Symbol},
		Store:    receipt.Store{ID: r.Store.ID, Name: r.Store.Name},
	}
	if err := out.Validate(); err != nil {
		return nil, &ParseError{Kind: KindSchema, Detail: "receipt", Err: err}
	}
	return out, nil
}

func (r RawItem) normalize(path string) (receipt.Item, error) {
	unitPrice, err := parseNumeric(path+".currentUnitPrice", r.CurrentUnitPrice)
	if err != nil {
		return receipt.Item{}, err
	}
	quantity, err := parseNumeric(path+".quantity", r.Quantity)
	if err != nil {
		return receipt.Item{}, err
	}
	var original *float64
	if r.OriginalAmount != "" {
		v, err := parseNumeric(path+".originalAmount", r.OriginalAmount)
		if err != nil {
			return receipt.Item{}, err
		}
		original = utils.Ptr(v)
	}

	discounts := make([]receipt.Discount, 0, len(r.Discounts))
	for j, d := range r.Discounts {
		amount, err := parseNumeric(fmt.Sprintf("%s.discounts[%d].amount", path, j), d.Amount)
		if err != nil {
			return receipt.Item{}, err
		}
		discounts = append(discounts, receipt.Discount{Amount: math.Abs(amount)})
	}

	return receipt.Item{
		UnitPrice:      unitPrice,
		Quantity:       quantity,
		IsWeight:       r.IsWeight,
		Name:           r.Name,
		Barcode:        r.CodeInput,
		Discounts:      discounts,
		OriginalAmount: original,
	}, nil
}

func parseNumeric(field, s string) (float64, error) {
	v, err := locale.ParseField(field, s)
	if err != nil {
		return 0, numberFormat(field, err)
	}
	return v, nil
}

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseBackendTime reads a timestamp the backend tags as UTC although it is
// local wall-clock time. The offset is dropped and the wall clock is
// re-anchored in loc.
func ParseBackendTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var lastErr error
	for _, layout := range backendTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			lastErr = err
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
	}
	return time.Time{}, lastErr
}
