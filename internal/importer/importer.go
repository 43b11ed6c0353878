// Package importer drives a parsed receipt through catalog lookup,
// reconciliation and the purchase sink, one line at a time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

type Importer struct {
	catalog CatalogResolver
	sink    PurchaseSink
	ledger  Ledger
	engine  *reconcile.Engine
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Importer)

// WithLedger enables idempotency checks and run persistence.
func WithLedger(l Ledger) Option {
	return func(i *Importer) { i.ledger = l }
}

func WithEngine(e *reconcile.Engine) Option {
	return func(i *Importer) {
		if e != nil {
			i.engine = e
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

func New(catalog CatalogResolver, sink PurchaseSink, opts ...Option) *Importer {
	i := &Importer{
		catalog: catalog,
		sink:    sink,
		engine:  reconcile.NewEngine(nil, nil),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reconciles and records every line of rcpt. Line failures are folded
// into Report.Skipped; the error return is reserved for receipt-level
// failures (already imported, ledger, cancellation).
func (i *Importer) Import(ctx context.Context, rcpt *receipt.Detailed, shoppingLocationID *int) (*Report, error) {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	ctx = common.WithReceiptID(ctx, rcpt.ID)
	logger := common.LoggerFromContext(ctx, i.logger)

	origin := originFromContext(ctx)
	report := &Report{
		RunID:     runID,
		ReceiptID: rcpt.ID,
		Source:    origin.Path,
		Format:    origin.Format,
		StoreID:   rcpt.Store.ID,
		Currency:  rcpt.Currency,
		Date:      rcpt.Date,
		StartedAt: i.now(),
	}

	if i.ledger != nil {
		done, err := i.ledger.Imported(ctx, rcpt.ID)
		if err != nil {
			return nil, common.WrapError(err, "check ledger")
		}
		if done {
			logger.Info("import.receipt.already_imported")
			return nil, common.NewAppError("ALREADY_IMPORTED", fmt.Sprintf("receipt %s", rcpt.ID), common.ErrAlreadyImported)
		}
	}

	logger.Info("import.receipt.start", "items", len(rcpt.Items), "store_id", rcpt.Store.ID)

	for line, item := range rcpt.Items {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("import canceled at line %d: %w", line+1, err)
		}
		if p, s := i.importItem(ctx, logger, rcpt, line, item, shoppingLocationID); s != nil {
			report.Skipped = append(report.Skipped, *s)
		} else {
			report.Purchased = append(report.Purchased, *p)
		}
	}
	report.FinishedAt = i.now()

	logger.Info("import.receipt.done",
		"purchased", len(report.Purchased),
		"skipped", len(report.Skipped),
		"status", report.Status(),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)

	if i.ledger != nil {
		if err := i.ledger.SaveRun(ctx, report); err != nil {
			return report, common.WrapError(err, "save run")
		}
	}
	return report, nil
}

func (i *Importer) importItem(ctx context.Context, logger *slog.Logger, rcpt *receipt.Detailed, line int, item receipt.Item, shoppingLocationID *int) (*Purchased, *Skipped) {
	logger = logger.With("line", line+1, "barcode", item.Barcode)
	skip := func(reason string, err error, txIDs []string) (*Purchased, *Skipped) {
		logger.Warn("import.item.skipped", "reason", reason, "err", err)
		return nil, &Skipped{Line: line + 1, Item: item, Reason: reason, Err: err, TransactionIDs: txIDs}
	}

	resolved, err := i.catalog.ProductByBarcode(ctx, item.Barcode)
	if err != nil {
		if errors.Is(err, common.ErrProductNotFound) {
			return skip(ReasonProductNotFound, err, nil)
		}
		return skip(ReasonCatalogError, err, nil)
	}

	note := resolved.Note
	if note == "" {
		note = item.Name
	}
	res, err := i.engine.Reconcile(item, reconcile.Context{
		PurchaseDate:       rcpt.Date,
		Currency:           rcpt.Currency,
		ShoppingLocationID: shoppingLocationID,
		Product:            resolved.Product,
		PackAmount:         resolved.PackAmount,
		PackUnitID:         resolved.PackUnitID,
		Note:               note,
	})
	if err != nil {
		if kind := reconcile.KindOf(err); kind != "" {
			if kind == reconcile.KindBarcodeQuantityUnitUnsupported {
				err = i.describeUnit(ctx, err)
			}
			return skip(string(kind), err, nil)
		}
		return skip(ReasonReconcileError, err, nil)
	}

	txIDs := make([]string, 0, len(res.Instructions))
	for _, in := range res.Instructions {
		txID, err := i.sink.Purchase(ctx, in)
		if err != nil {
			return skip(ReasonSinkError, err, txIDs)
		}
		txIDs = append(txIDs, txID)
	}

	if err := i.sink.UpdateLastPrice(ctx, item.Barcode, res.UnitPrice); err != nil {
		logger.Warn("import.item.last_price_failed", "err", err)
	}

	logger.Debug("import.item.purchased", "product_id", resolved.Product.ID, "units", len(txIDs), "unit_price", res.UnitPrice)
	return &Purchased{
		Line:           line + 1,
		Item:           item,
		UnitPrice:      res.UnitPrice,
		Instructions:   res.Instructions,
		TransactionIDs: txIDs,
	}, nil
}

// describeUnit adds the unit's display name to an unsupported-unit error.
func (i *Importer) describeUnit(ctx context.Context, err error) error {
	var re *reconcile.Error
	if !errors.As(err, &re) {
		return err
	}
	name, lookupErr := i.catalog.QuantityUnitName(ctx, re.UnitID)
	if lookupErr != nil || name == "" {
		return err
	}
	return fmt.Errorf("%w (%s)", err, name)
}
