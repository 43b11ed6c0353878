// Package receipt holds the canonical, backend-agnostic receipt model that
// every parser produces and reconciliation consumes.
package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
)

// Currency is identified by its ISO 4217 code.
type Currency struct {
	ID     string `json:"id" validate:"required"`
	Symbol string `json:"symbol"`
}

// Equal compares currencies by code only.
func (c Currency) Equal(other Currency) bool {
	return c.ID == other.ID
}

// Precision is the number of minor-unit digits used when rounding money.
func (c Currency) Precision() int32 {
	switch strings.ToUpper(c.ID) {
	case "JPY", "KRW", "ISK", "HUF":
		return 0
	default:
		return 2
	}
}

type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Discount always belongs to the item printed before it.
type Discount struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

type Item struct {
	// Price per one unit of Quantity (per piece, or per kg for weight items).
	UnitPrice float64 `json:"unit_price"`
	// Count for discrete items, fractional kilograms for weight items.
	Quantity  float64    `json:"quantity" validate:"gt=0"`
	IsWeight  bool       `json:"is_weight"`
	Name      string     `json:"name"`
	Barcode   string     `json:"barcode" validate:"required"`
	Discounts []Discount `json:"discounts" validate:"dive"`
	// OriginalAmount is the printed line total, nil when the source does not
	// carry it. A printed zero is a free line.
	OriginalAmount *float64 `json:"original_amount,omitempty"`
}

// TotalDiscount sums every discount attached to the item.
func (i Item) TotalDiscount() float64 {
	var total float64
	for _, d := range i.Discounts {
		total += d.Amount
	}
	return total
}

// LineAmount is the undiscounted line total: OriginalAmount when printed,
// otherwise UnitPrice*Quantity rounded to cents.
func (i Item) LineAmount() float64 {
	if i.OriginalAmount != nil {
		return *i.OriginalAmount
	}
	amount, _ := decimal.NewFromFloat(i.UnitPrice).
		Mul(decimal.NewFromFloat(i.Quantity)).
		Round(2).
		Float64()
	return amount
}

type Detailed struct {
	ID string `json:"id" validate:"required"`
	// Print order. Discount attribution depends on it.
	Items    []Item    `json:"items" validate:"dive"`
	Date     time.Time `json:"date"`
	Currency Currency  `json:"currency"`
	Store    Store     `json:"store"`
}

// Validate checks the structural invariants of a parsed receipt.
func (d *Detailed) Validate() error {
	return common.ValidateStruct(d)
}

// Total is the sum of line amounts minus discounts, rounded to the currency precision.
func (d *Detailed) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(decimal.NewFromFloat(item.LineAmount())).
			Sub(decimal.NewFromFloat(item.TotalDiscount()))
	}
	return total.Round(d.Currency.Precision())
}

// Summary is the listing projection shown before a receipt is fetched.
type Summary struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Currency      Currency  `json:"currency"`
	TotalAmount   float64   `json:"total_amount"`
	ArticlesCount *int      `json:"articles_count,omitempty"`
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString(s.Date.Format("Mon Jan _2 2006 15:04:05"))
	if s.ArticlesCount != nil {
		fmt.Fprintf(&b, " - %d product(s)", *s.ArticlesCount)
	}
	fmt.Fprintf(&b, " - %s %s", strconv.FormatFloat(s.TotalAmount, 'f', -1, 64), s.Currency.Symbol)
	return b.String()
}
