package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/importer"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

func TestReportXLSX(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report := &importer.Report{
		RunID:     "run-1",
		ReceiptID: "230020240105140309",
		Currency:  receipt.Currency{ID: "SEK", Symbol: "kr"},
		Date:      time.Date(2024, 1, 5, 14, 3, 9, 0, time.UTC),
		Purchased: []importer.Purchased{{
			Line: 1,
			Item: receipt.Item{Name: "Grytbitar", Barcode: "lidl-0051496"},
			Instructions: []reconcile.Instruction{
				{ProductID: 17, Amount: 1, Price: 75.94, DueDate: &due},
				{ProductID: 17, Amount: 1, Price: 75.94},
			},
			TransactionIDs: []string{"tx-1", "tx-2"},
		}},
		Skipped: []importer.Skipped{{
			Line:   2,
			Item:   receipt.Item{Name: "Mellanmjölk", Barcode: "lidl-x", UnitPrice: 13.9, Quantity: 1},
			Reason: importer.ReasonProductNotFound,
			Err:    common.ErrProductNotFound,
		}},
	}

	data, err := NewService(nil).ReportXLSX(context.Background(), []*importer.Report{report})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetPurchases)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Receipt", rows[0][0])
	assert.Equal(t, "2024-01-05", rows[1][1])
	assert.Equal(t, "Grytbitar", rows[1][3])
	assert.Equal(t, "75.94", rows[1][7])
	assert.Equal(t, "2024-01-10", rows[1][8])
	assert.Equal(t, "2999-12-31", rows[2][8])
	assert.Equal(t, "tx-2", rows[2][10])

	skipped, err := f.GetRows(SheetSkipped)
	require.NoError(t, err)
	require.Len(t, skipped, 2)
	assert.Equal(t, "13.90", skipped[1][5])
	assert.Equal(t, importer.ReasonProductNotFound, skipped[1][7])
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "64.98", Money(64.98, receipt.Currency{ID: "SEK"}))
	assert.Equal(t, "1.10", Money(1.1, receipt.Currency{ID: "EUR"}))
	assert.Equal(t, "1235", Money(1234.5, receipt.Currency{ID: "JPY"}))
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 6, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "import-20240106-093000-8f1c2a3b.xlsx",
		FileName("8f1c2a3b-1111-2222-3333-444455556666", at))
}
