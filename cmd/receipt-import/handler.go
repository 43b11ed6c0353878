package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/internal/async"
	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/importer"
	"github.com/joseph-ayodele/grocery-receipts/internal/ingest"
)

// shoppingLocator maps a receipt's store to the inventory's shopping location.
type shoppingLocator interface {
	ShoppingLocationFor(storeID string) *int
}

// runReplacer records a forced run over any earlier one for the receipt.
type runReplacer interface {
	ReplaceRun(ctx context.Context, report *importer.Report) error
}

// receiptHandler loads one receipt file and imports it. Forced jobs bypass
// the ledger's idempotency check and replace the earlier run.
type receiptHandler struct {
	loader   ingest.Loader
	shops    shoppingLocator
	imp      *importer.Importer
	forced   *importer.Importer
	ledger   runReplacer
	logger   *slog.Logger
	since    time.Time // receipts dated before this are ignored
	mu       sync.Mutex
	reports  []*importer.Report
	failures int
}

func (h *receiptHandler) Handle(ctx context.Context, job async.Job) error {
	loaded, err := h.loader.LoadReceipt(ctx, job.Path)
	if err != nil {
		h.fail()
		return err
	}
	rcpt := loaded.Receipt
	if !h.since.IsZero() && rcpt.Date.Before(h.since) {
		h.logger.Info("import.file.before_since", "path", job.Path, "receipt_id", rcpt.ID, "date", rcpt.Date)
		return nil
	}
	ctx = importer.WithOrigin(ctx, importer.Origin{Path: loaded.Source.Path, Format: loaded.Source.Format})

	imp := h.imp
	if job.Force {
		imp = h.forced
	}
	report, err := imp.Import(ctx, rcpt, h.shops.ShoppingLocationFor(rcpt.Store.ID))
	if errors.Is(err, common.ErrAlreadyImported) {
		h.logger.Info("import.file.already_imported", "path", job.Path, "receipt_id", rcpt.ID)
		return nil
	}
	if report != nil {
		h.collect(report)
	}
	if err != nil {
		h.fail()
		return err
	}
	if job.Force && h.ledger != nil {
		if err := h.ledger.ReplaceRun(ctx, report); err != nil {
			h.fail()
			return common.WrapError(err, "save forced run")
		}
	}
	return nil
}

func (h *receiptHandler) collect(r *importer.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, r)
}

func (h *receiptHandler) fail() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
}

// Reports returns the collected reports and the number of failed files.
func (h *receiptHandler) Reports() ([]*importer.Report, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*importer.Report, len(h.reports))
	copy(out, h.reports)
	return out, h.failures
}
