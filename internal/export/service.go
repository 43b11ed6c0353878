package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/grocery-receipts/internal/importer"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/utils"
)

const (
	SheetPurchases = "Purchases"
	SheetSkipped   = "Skipped"
)

// Service produces XLSX bytes for import reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ReportXLSX renders one row per recorded unit on the Purchases sheet and one
// row per skipped line on the Skipped sheet.
func (s *Service) ReportXLSX(ctx context.Context, reports []*importer.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; reuse it for purchases.
	if err := f.SetSheetName("Sheet1", SheetPurchases); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetSkipped); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(SheetPurchases)
	f.SetActiveSheet(activeIndex)

	writeRow(f, SheetPurchases, 1, []any{
		"Receipt", "Purchase Date", "Line", "Item", "Barcode", "Product",
		"Amount", "Unit Price", "Due Date", "Currency", "Transaction",
	})
	writeRow(f, SheetSkipped, 1, []any{
		"Receipt", "Purchase Date", "Line", "Item", "Barcode", "Line Amount", "Currency", "Reason", "Error",
	})

	purchaseRow, skippedRow := 2, 2
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := utils.FormatYMD(r.Date)
		for _, p := range r.Purchased {
			for i, in := range p.Instructions {
				tx := ""
				if i < len(p.TransactionIDs) {
					tx = p.TransactionIDs[i]
				}
				writeRow(f, SheetPurchases, purchaseRow, []any{
					r.ReceiptID,
					date,
					p.Line,
					p.Item.Name,
					p.Item.Barcode,
					in.ProductID,
					in.Amount,
					Money(in.Price, r.Currency),
					utils.DueDateOrNever(in.DueDate),
					r.Currency.ID,
					tx,
				})
				purchaseRow++
			}
		}
		for _, sk := range r.Skipped {
			msg := ""
			if sk.Err != nil {
				msg = truncate(sk.Err.Error(), 140)
			}
			writeRow(f, SheetSkipped, skippedRow, []any{
				r.ReceiptID,
				date,
				sk.Line,
				sk.Item.Name,
				sk.Item.Barcode,
				Money(sk.Item.LineAmount()-sk.Item.TotalDiscount(), r.Currency),
				r.Currency.ID,
				sk.Reason,
				msg,
			})
			skippedRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetPurchases, "A", "A", 22) // receipt
	_ = f.SetColWidth(SheetPurchases, "D", "D", 28) // item
	_ = f.SetColWidth(SheetPurchases, "E", "E", 18) // barcode
	_ = f.SetColWidth(SheetPurchases, "K", "K", 38) // transaction
	_ = f.SetColWidth(SheetSkipped, "A", "A", 22)
	_ = f.SetColWidth(SheetSkipped, "D", "D", 28)
	_ = f.SetColWidth(SheetSkipped, "I", "I", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"receipts", len(reports),
		"purchase_rows", purchaseRow-2,
		"skipped_rows", skippedRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Money renders an amount at the currency's minor-unit precision.
func Money(amount float64, c receipt.Currency) string {
	return decimal.NewFromFloat(amount).StringFixed(c.Precision())
}

// FileName is the default report name for a run.
func FileName(runID string, at time.Time) string {
	id := runID
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return fmt.Sprintf("import-%s-%s.xlsx", at.Format("20060102-150405"), id)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
