package importer

import (
	"context"

	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

// CatalogResolver looks up inventory catalog context. ProductByBarcode returns
// an error wrapping common.ErrProductNotFound for unknown barcodes.
type CatalogResolver interface {
	ProductByBarcode(ctx context.Context, barcode string) (*reconcile.Resolved, error)
	QuantityUnitName(ctx context.Context, unitID int) (string, error)
}

// PurchaseSink records purchases in the inventory system.
type PurchaseSink interface {
	Purchase(ctx context.Context, in reconcile.Instruction) (string, error)
	UpdateLastPrice(ctx context.Context, barcode string, price float64) error
}

// Ledger remembers which receipts were already imported.
type Ledger interface {
	Imported(ctx context.Context, receiptID string) (bool, error)
	SaveRun(ctx context.Context, report *Report) error
}
