// Package reconcile turns one canonical receipt line plus catalog context
// into purchase instructions for the inventory system.
package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

// Product is the catalog view of the product a barcode resolved to.
type Product struct {
	ID   int
	Name string
	// DefaultBestBeforeDays <= 0 means the product never expires.
	DefaultBestBeforeDays    int
	LocationID               *int
	StockUnitID              int
	PurchaseUnitID           int
	PurchaseToStockFactor    float64
	EnableTareWeightHandling bool
}

// Resolved is what the catalog knows about one barcode.
type Resolved struct {
	Product    Product
	PackAmount *float64
	PackUnitID *int
	Note       string
}

// Context is everything the caller resolved before reconciling a line.
type Context struct {
	PurchaseDate       time.Time
	Currency           receipt.Currency
	ShoppingLocationID *int
	Product            Product
	// PackAmount and PackUnitID describe one scan of the item's barcode,
	// when the catalog knows it.
	PackAmount *float64
	PackUnitID *int
	Note       string
}

// Instruction is one purchase to record, amounts in the product's stock unit.
type Instruction struct {
	ProductID          int        `json:"product_id" validate:"gt=0"`
	Barcode            string     `json:"barcode"`
	Amount             float64    `json:"amount" validate:"gt=0"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	PurchaseDate       time.Time  `json:"purchase_date"`
	Price              float64    `json:"price"`
	LocationID         *int       `json:"location_id,omitempty"`
	ShoppingLocationID *int       `json:"shopping_location_id,omitempty"`
	Note               string     `json:"note,omitempty"`
}

// Result of reconciling one line. UnitPrice is the price per stock unit,
// written back as the barcode's last price.
type Result struct {
	UnitPrice    float64
	Instructions []Instruction
}

// WeightProvider supplies the actual purchased weight of a weight-priced
// line, in the product's stock unit. suggested is the receipt quantity.
type WeightProvider interface {
	PurchasedWeight(item receipt.Item, suggested float64) (float64, error)
}

// DueDatePicker chooses the due date of one unit. unit counts from zero;
// suggested is nil for products that never expire.
type DueDatePicker interface {
	DueDate(item receipt.Item, unit int, suggested *time.Time) (*time.Time, error)
}

// maxUnitCount caps the units of one count line. Each unit becomes its own
// instruction.
const maxUnitCount = 1000

type Engine struct {
	weights WeightProvider
	dates   DueDatePicker
}

// NewEngine builds an engine. Nil collaborators fall back to accepting
// every suggestion.
func NewEngine(weights WeightProvider, dates DueDatePicker) *Engine {
	if weights == nil {
		weights = ReceiptWeights{}
	}
	if dates == nil {
		dates = SuggestedDates{}
	}
	return &Engine{weights: weights, dates: dates}
}

func (e *Engine) Reconcile(item receipt.Item, rc Context) (Result, error) {
	if rc.Product.EnableTareWeightHandling {
		return Result{}, ErrTareWeightHandling
	}
	if item.IsWeight {
		return e.reconcileWeight(item, rc)
	}
	return e.reconcileCount(item, rc)
}

func (e *Engine) reconcileWeight(item receipt.Item, rc Context) (Result, error) {
	weight, err := e.weights.PurchasedWeight(item, item.Quantity)
	if err != nil {
		return Result{}, fmt.Errorf("purchased weight: %w", err)
	}
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Result{}, &Error{Kind: KindInvalidWeight, Err: fmt.Errorf("got %v", weight)}
	}

	price := (item.LineAmount() - item.TotalDiscount()) / weight

	due, err := e.dates.DueDate(item, 0, SuggestDueDate(rc.PurchaseDate, rc.Product.DefaultBestBeforeDays))
	if err != nil {
		return Result{}, fmt.Errorf("due date: %w", err)
	}

	in := newInstruction(item, rc, weight, price, due)
	if err := common.ValidateStruct(in); err != nil {
		return Result{}, err
	}
	return Result{UnitPrice: price, Instructions: []Instruction{in}}, nil
}

func (e *Engine) reconcileCount(item receipt.Item, rc Context) (Result, error) {
	packAmount, err := StockPackAmount(rc)
	if err != nil {
		return Result{}, err
	}

	// Count lines are integral on a real receipt; rounding only absorbs
	// float noise. A fractional count is rounded, not rejected.
	if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) || item.Quantity > maxUnitCount {
		return Result{}, &Error{Kind: KindInvalidQuantity, Err: fmt.Errorf("quantity %v", item.Quantity)}
	}
	count := int(math.Round(item.Quantity))
	if count < 1 {
		return Result{}, &Error{Kind: KindInvalidQuantity, Err: fmt.Errorf("quantity %v", item.Quantity)}
	}

	share := item.TotalDiscount() / float64(count)
	price := (item.UnitPrice - share) / packAmount

	out := Result{UnitPrice: price}
	suggested := SuggestDueDate(rc.PurchaseDate, rc.Product.DefaultBestBeforeDays)
	for unit := 0; unit < count; unit++ {
		due, err := e.dates.DueDate(item, unit, suggested)
		if err != nil {
			return Result{}, fmt.Errorf("due date of unit %d: %w", unit+1, err)
		}
		in := newInstruction(item, rc, packAmount, price, due)
		if err := common.ValidateStruct(in); err != nil {
			return Result{}, err
		}
		out.Instructions = append(out.Instructions, in)
		suggested = due
	}
	return out, nil
}

// StockPackAmount converts the barcode's pack amount to the product's stock
// unit.
func StockPackAmount(rc Context) (float64, error) {
	if rc.PackAmount == nil {
		return 0, ErrBarcodeAmountNotFound
	}
	if rc.PackUnitID == nil {
		return 0, ErrBarcodeQuantityUnitNotFound
	}
	amount := *rc.PackAmount
	switch unit := *rc.PackUnitID; {
	case unit == rc.Product.StockUnitID:
	case unit == rc.Product.PurchaseUnitID:
		factor := rc.Product.PurchaseToStockFactor
		if factor <= 0 {
			factor = 1
		}
		amount *= factor
	default:
		return 0, &Error{Kind: KindBarcodeQuantityUnitUnsupported, UnitID: unit}
	}
	if amount <= 0 {
		return 0, &Error{Kind: KindBarcodeAmountNotFound, Err: fmt.Errorf("pack amount %v", amount)}
	}
	return amount, nil
}

// SuggestDueDate is the purchase day plus the product's best-before horizon,
// or nil when the product never expires.
func SuggestDueDate(purchased time.Time, bestBeforeDays int) *time.Time {
	if bestBeforeDays <= 0 {
		return nil
	}
	y, m, d := purchased.Date()
	due := time.Date(y, m, d+bestBeforeDays, 0, 0, 0, 0, purchased.Location())
	return &due
}

func newInstruction(item receipt.Item, rc Context, amount, price float64, due *time.Time) Instruction {
	return Instruction{
		ProductID:          rc.Product.ID,
		Barcode:            item.Barcode,
		Amount:             amount,
		DueDate:            due,
		PurchaseDate:       rc.PurchaseDate,
		Price:              price,
		LocationID:         rc.Product.LocationID,
		ShoppingLocationID: rc.ShoppingLocationID,
		Note:               rc.Note,
	}
}
