package reconcile

import (
	"time"

	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

// ReceiptWeights trusts the weight printed on the receipt.
type ReceiptWeights struct{}

func (ReceiptWeights) PurchasedWeight(_ receipt.Item, suggested float64) (float64, error) {
	return suggested, nil
}

// SuggestedDates accepts every suggested due date.
type SuggestedDates struct{}

func (SuggestedDates) DueDate(_ receipt.Item, _ int, suggested *time.Time) (*time.Time, error) {
	return suggested, nil
}

// WeightFunc adapts a function to WeightProvider.
type WeightFunc func(item receipt.Item, suggested float64) (float64, error)

func (f WeightFunc) PurchasedWeight(item receipt.Item, suggested float64) (float64, error) {
	return f(item, suggested)
}

// DueDateFunc adapts a function to DueDatePicker.
type DueDateFunc func(item receipt.Item, unit int, suggested *time.Time) (*time.Time, error)

func (f DueDateFunc) DueDate(item receipt.Item, unit int, suggested *time.Time) (*time.Time, error) {
	return f(item, unit, suggested)
}
