package importer

import (
	"context"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/constants"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

// Skip reasons that are not reconciliation kinds.
const (
	ReasonProductNotFound = "PRODUCT_NOT_FOUND"
	ReasonCatalogError    = "CATALOG_ERROR"
	ReasonReconcileError  = "RECONCILE_ERROR"
	ReasonSinkError       = "SINK_ERROR"
)

type Purchased struct {
	Line           int
	Item           receipt.Item
	UnitPrice      float64
	Instructions   []reconcile.Instruction
	TransactionIDs []string
}

type Skipped struct {
	Line   int
	Item   receipt.Item
	Reason string
	Err    error
	// TransactionIDs of units recorded before the sink failed.
	TransactionIDs []string
}

// Origin is the file a receipt was loaded from.
type Origin struct {
	Path   string
	Format constants.Format
}

type originKey struct{}

// WithOrigin attaches the receipt's source file so it lands on the Report.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

func originFromContext(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// Report is the outcome of importing one receipt.
type Report struct {
	RunID      string
	ReceiptID  string
	Source     string
	Format     constants.Format
	StoreID    string
	Currency   receipt.Currency
	Date       time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Purchased  []Purchased
	Skipped    []Skipped
}

func (r *Report) Status() constants.RunStatus {
	switch {
	case r.FinishedAt.IsZero():
		return constants.RunStatusRunning
	case len(r.Skipped) > 0:
		return constants.RunStatusPartial
	default:
		return constants.RunStatusCompleted
	}
}

// Spent is the sum of recorded instruction prices times amounts.
func (r *Report) Spent() float64 {
	var total float64
	for _, p := range r.Purchased {
		for _, in := range p.Instructions {
			total += in.Price * in.Amount
		}
	}
	return total
}
