package lidl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

// DecodeReceiptsPage converts one page of the ticket listing.
func DecodeReceiptsPage(data []byte, opts ...Option) ([]receipt.Summary, error) {
	o := buildOptions(opts)
	var page RawReceiptsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &ParseError{Kind: KindMalformed, Detail: "json", Err: err}
	}
	out := make([]receipt.Summary, 0, len(page.Receipts))
	for i, raw := range page.Receipts {
		s, err := raw.summary(o.location)
		if err != nil {
			return nil, &ParseError{Kind: KindMalformed, Detail: fmt.Sprintf("receipts[%d].date", i), Err: err}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r RawSummary) summary(loc *time.Location) (receipt.Summary, error) {
	date, err := ParseBackendTime(r.Date, loc)
	if err != nil {
		return receipt.Summary{}, err
	}
	return receipt.Summary{
		ID:            r.ID,
		Date:          date,
		Currency:      receipt.Currency{ID: r.Currency.Code, Symbol: r.Currency.Symbol},
		TotalAmount:   r.TotalAmount,
		ArticlesCount: r.ArticlesCount,
	}, nil
}
