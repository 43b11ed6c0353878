package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/constants"
	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/importer"
)

// RunRow is one persisted import run.
type RunRow struct {
	ID          string
	ReceiptID   string
	Source      string
	Format      string
	StoreID     string
	Currency    string
	ReceiptDate time.Time
	Status      constants.RunStatus
	Purchased   int
	Skipped     int
	Spent       float64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ItemRow is the persisted outcome of one receipt line.
type ItemRow struct {
	RunID          string
	Line           int
	Barcode        string
	Name           string
	Status         constants.ItemStatus
	Reason         string
	Error          string
	UnitPrice      *float64
	Units          int
	TransactionIDs []string
}

type LedgerRepository interface {
	Imported(ctx context.Context, receiptID string) (bool, error)
	SaveRun(ctx context.Context, report *importer.Report) error
	ReplaceRun(ctx context.Context, report *importer.Report) error
	ListRuns(ctx context.Context, limit int) ([]RunRow, error)
	ListItems(ctx context.Context, runID string) ([]ItemRow, error)
}

type ledgerRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewLedgerRepository(db *DB, logger *slog.Logger) LedgerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerRepo{
		db:     db,
		logger: logger,
	}
}

func (r *ledgerRepo) Imported(ctx context.Context, receiptID string) (bool, error) {
	var n int
	err := r.db.SQL.QueryRowContext(ctx,
		r.db.Rebind(`SELECT COUNT(1) FROM import_run WHERE receipt_id = ?`), receiptID).Scan(&n)
	if err != nil {
		r.logger.Error("failed to query import run", "receipt_id", receiptID, "error", err)
		return false, common.NewAppError("DATABASE_ERROR", "query import run", errors.Join(common.ErrDatabase, err))
	}
	return n > 0, nil
}

// SaveRun records a run; a second run for the same receipt is rejected.
func (r *ledgerRepo) SaveRun(ctx context.Context, report *importer.Report) error {
	return r.saveRun(ctx, report, false)
}

// ReplaceRun records a run, dropping any earlier run for the same receipt.
func (r *ledgerRepo) ReplaceRun(ctx context.Context, report *importer.Report) error {
	return r.saveRun(ctx, report, true)
}

func (r *ledgerRepo) saveRun(ctx context.Context, report *importer.Report, replace bool) (err error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DATABASE_ERROR", "begin transaction", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if replace {
		if _, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM import_run_item
			WHERE run_id IN (SELECT id FROM import_run WHERE receipt_id = ?)`), report.ReceiptID); err != nil {
			return common.NewAppError("DATABASE_ERROR", "delete previous run items", errors.Join(common.ErrDatabase, err))
		}
		if _, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM import_run WHERE receipt_id = ?`), report.ReceiptID); err != nil {
			return common.NewAppError("DATABASE_ERROR", "delete previous run", errors.Join(common.ErrDatabase, err))
		}
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO import_run
		(id, receipt_id, source, format, store_id, currency, receipt_date, status, purchased, skipped, spent, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		report.RunID,
		report.ReceiptID,
		report.Source,
		string(report.Format),
		report.StoreID,
		report.Currency.ID,
		formatTime(report.Date),
		string(report.Status()),
		len(report.Purchased),
		len(report.Skipped),
		report.Spent(),
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
	)
	if err != nil {
		r.logger.Error("failed to insert import run", "run_id", report.RunID, "receipt_id", report.ReceiptID, "error", err)
		return common.NewAppError("DATABASE_ERROR", "insert import run", errors.Join(common.ErrDatabase, err))
	}

	insertItem := r.db.Rebind(`INSERT INTO import_run_item
		(run_id, line, barcode, name, status, reason, error, unit_price, units, transaction_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, p := range report.Purchased {
		price := p.UnitPrice
		if _, err = tx.ExecContext(ctx, insertItem,
			report.RunID, p.Line, p.Item.Barcode, p.Item.Name,
			string(constants.ItemStatusPurchased), "", "", &price, len(p.TransactionIDs),
			strings.Join(p.TransactionIDs, ","),
		); err != nil {
			return common.NewAppError("DATABASE_ERROR", fmt.Sprintf("insert line %d", p.Line), errors.Join(common.ErrDatabase, err))
		}
	}
	for _, s := range report.Skipped {
		msg := ""
		if s.Err != nil {
			msg = s.Err.Error()
		}
		if _, err = tx.ExecContext(ctx, insertItem,
			report.RunID, s.Line, s.Item.Barcode, s.Item.Name,
			string(constants.ItemStatusSkipped), s.Reason, msg, nil, len(s.TransactionIDs),
			strings.Join(s.TransactionIDs, ","),
		); err != nil {
			return common.NewAppError("DATABASE_ERROR", fmt.Sprintf("insert line %d", s.Line), errors.Join(common.ErrDatabase, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError("DATABASE_ERROR", "commit import run", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Debug("import run saved", "run_id", report.RunID, "receipt_id", report.ReceiptID)
	return nil
}

func (r *ledgerRepo) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT
		id, receipt_id, source, format, store_id, currency, receipt_date, status, purchased, skipped, spent, started_at, finished_at
		FROM import_run ORDER BY started_at DESC, id LIMIT ?`), limit)
	if err != nil {
		r.logger.Error("failed to list import runs", "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "list import runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var status, receiptDate, started, finished string
		if err := rows.Scan(&row.ID, &row.ReceiptID, &row.Source, &row.Format, &row.StoreID, &row.Currency,
			&receiptDate, &status, &row.Purchased, &row.Skipped, &row.Spent, &started, &finished); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan import run", errors.Join(common.ErrDatabase, err))
		}
		row.Status = constants.RunStatus(status)
		row.ReceiptDate = parseTime(receiptDate)
		row.StartedAt = parseTime(started)
		row.FinishedAt = parseTime(finished)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) ListItems(ctx context.Context, runID string) ([]ItemRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT
		run_id, line, barcode, name, status, reason, error, unit_price, units, transaction_ids
		FROM import_run_item WHERE run_id = ? ORDER BY line`), runID)
	if err != nil {
		r.logger.Error("failed to list import run items", "run_id", runID, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "list import run items", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		var (
			row    ItemRow
			status string
			price  sql.NullFloat64
			txIDs  string
		)
		if err := rows.Scan(&row.RunID, &row.Line, &row.Barcode, &row.Name, &status, &row.Reason, &row.Error,
			&price, &row.Units, &txIDs); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan import run item", errors.Join(common.ErrDatabase, err))
		}
		row.Status = constants.ItemStatus(status)
		if price.Valid {
			p := price.Float64
			row.UnitPrice = &p
		}
		if txIDs != "" {
			row.TransactionIDs = strings.Split(txIDs, ",")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
