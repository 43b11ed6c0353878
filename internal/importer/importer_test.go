package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/joseph-ayodele/grocery-receipts/constants"
	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
	"github.com/joseph-ayodele/grocery-receipts/internal/utils"
)

// --- Mocks ---

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ProductByBarcode(ctx context.Context, barcode string) (*reconcile.Resolved, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Resolved), args.Error(1)
}

func (m *MockCatalog) QuantityUnitName(ctx context.Context, unitID int) (string, error) {
	args := m.Called(ctx, unitID)
	return args.String(0), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Purchase(ctx context.Context, in reconcile.Instruction) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockSink) UpdateLastPrice(ctx context.Context, barcode string, price float64) error {
	args := m.Called(ctx, barcode, price)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Imported(ctx context.Context, receiptID string) (bool, error) {
	args := m.Called(ctx, receiptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) SaveRun(ctx context.Context, report *Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// --- Fixtures ---

var purchaseDate = time.Date(2024, 1, 5, 14, 3, 9, 0, time.UTC)

func testReceipt() *receipt.Detailed {
	return &receipt.Detailed{
		ID:       "230020240105140309",
		Date:     purchaseDate,
		Currency: receipt.Currency{ID: "SEK", Symbol: "kr"},
		Store:    receipt.Store{ID: "SE3002", Name: "Stockholm Sveavägen"},
		Items: []receipt.Item{
			{UnitPrice: 79.9, Quantity: 2, Name: "Grytbitar", Barcode: "lidl-0051496",
				Discounts: []receipt.Discount{{Amount: 7.92}}},
			{UnitPrice: 67.9, Quantity: 0.957, IsWeight: true, Name: "Fläskfärs 20%", Barcode: "lidl-7006839",
				Discounts: []receipt.Discount{{Amount: 3.22}}},
			{UnitPrice: 13.9, Quantity: 1, Name: "Mellanmjölk", Barcode: "lidl-unknown"},
			{UnitPrice: 19.9, Quantity: 1, Name: "Ägg 12p", Barcode: "lidl-0000012"},
		},
	}
}

func grytbitar() *reconcile.Resolved {
	return &reconcile.Resolved{
		Product: reconcile.Product{
			ID: 17, DefaultBestBeforeDays: 5, LocationID: utils.Ptr(2),
			StockUnitID: 2, PurchaseUnitID: 3, PurchaseToStockFactor: 6,
		},
		PackAmount: utils.Ptr(1.0),
		PackUnitID: utils.Ptr(2),
	}
}

func farsen() *reconcile.Resolved {
	return &reconcile.Resolved{
		Product: reconcile.Product{ID: 21, DefaultBestBeforeDays: 2, StockUnitID: 5, PurchaseUnitID: 5, PurchaseToStockFactor: 1},
	}
}

func eggs() *reconcile.Resolved {
	return &reconcile.Resolved{
		Product:    reconcile.Product{ID: 30, StockUnitID: 2, PurchaseUnitID: 3},
		PackAmount: utils.Ptr(12.0),
		PackUnitID: utils.Ptr(9),
	}
}

// --- Suite ---

type ImporterTestSuite struct {
	suite.Suite
	catalog  *MockCatalog
	sink     *MockSink
	ledger   *MockLedger
	importer *Importer
	logs     *bytes.Buffer
}

func (s *ImporterTestSuite) SetupTest() {
	s.catalog = new(MockCatalog)
	s.sink = new(MockSink)
	s.ledger = new(MockLedger)
	s.logs = new(bytes.Buffer)
	s.importer = New(s.catalog, s.sink,
		WithLedger(s.ledger),
		WithLogger(slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
}

func (s *ImporterTestSuite) TestImport_FoldsFailuresWithoutShortCircuit() {
	ctx := common.WithRunID(context.Background(), "run-1")
	rcpt := testReceipt()

	s.ledger.On("Imported", mock.Anything, rcpt.ID).Return(false, nil).Once()
	s.catalog.On("ProductByBarcode", mock.Anything, "lidl-0051496").Return(grytbitar(), nil).Once()
	s.catalog.On("ProductByBarcode", mock.Anything, "lidl-7006839").Return(farsen(), nil).Once()
	s.catalog.On("ProductByBarcode", mock.Anything, "lidl-unknown").
		Return(nil, fmt.Errorf("barcode lidl-unknown: %w", common.ErrProductNotFound)).Once()
	s.catalog.On("ProductByBarcode", mock.Anything, "lidl-0000012").Return(eggs(), nil).Once()
	s.catalog.On("QuantityUnitName", mock.Anything, 9).Return("Tray", nil).Once()

	s.sink.On("Purchase", mock.Anything, mock.MatchedBy(func(in reconcile.Instruction) bool {
		return in.ProductID == 17 && in.Note == "Grytbitar"
	})).Return("tx-g", nil).Twice()
	s.sink.On("Purchase", mock.Anything, mock.MatchedBy(func(in reconcile.Instruction) bool {
		return in.ProductID == 21
	})).Return("tx-f", nil).Once()
	s.sink.On("UpdateLastPrice", mock.Anything, "lidl-0051496", mock.AnythingOfType("float64")).Return(nil).Once()
	s.sink.On("UpdateLastPrice", mock.Anything, "lidl-7006839", mock.AnythingOfType("float64")).
		Return(errors.New("write-back failed")).Once()
	s.ledger.On("SaveRun", mock.Anything, mock.AnythingOfType("*importer.Report")).Return(nil).Once()

	report, err := s.importer.Import(ctx, rcpt, utils.Ptr(4))

	s.Require().NoError(err)
	s.Equal("run-1", report.RunID)
	s.Equal(constants.RunStatusPartial, report.Status())

	s.Require().Len(report.Purchased, 2)
	s.Equal(1, report.Purchased[0].Line)
	s.Equal([]string{"tx-g", "tx-g"}, report.Purchased[0].TransactionIDs)
	s.InDelta(75.94, report.Purchased[0].UnitPrice, 1e-9)
	s.Equal(utils.Ptr(4), report.Purchased[0].Instructions[0].ShoppingLocationID)
	s.Equal(2, report.Purchased[1].Line)
	s.Equal([]string{"tx-f"}, report.Purchased[1].TransactionIDs, "a failed price write-back does not skip the item")

	s.Require().Len(report.Skipped, 2)
	s.Equal(3, report.Skipped[0].Line)
	s.Equal(ReasonProductNotFound, report.Skipped[0].Reason)
	s.ErrorIs(report.Skipped[0].Err, common.ErrProductNotFound)
	s.Equal(4, report.Skipped[1].Line)
	s.Equal(string(reconcile.KindBarcodeQuantityUnitUnsupported), report.Skipped[1].Reason)
	s.ErrorIs(report.Skipped[1].Err, reconcile.ErrBarcodeQuantityUnitUnsupported)
	s.Contains(report.Skipped[1].Err.Error(), "Tray")

	s.Contains(s.logs.String(), "import.item.skipped")
	s.Contains(s.logs.String(), "run_id=run-1")

	s.catalog.AssertExpectations(s.T())
	s.sink.AssertExpectations(s.T())
	s.ledger.AssertExpectations(s.T())
}

func (s *ImporterTestSuite) TestImport_AlreadyImported() {
	rcpt := testReceipt()
	s.ledger.On("Imported", mock.Anything, rcpt.ID).Return(true, nil).Once()

	report, err := s.importer.Import(context.Background(), rcpt, nil)

	s.Require().Error(err)
	s.Nil(report)
	s.ErrorIs(err, common.ErrAlreadyImported)
	s.Equal("ALREADY_IMPORTED", common.CodeOf(err))
	s.catalog.AssertNotCalled(s.T(), "ProductByBarcode", mock.Anything, mock.Anything)
	s.ledger.AssertExpectations(s.T())
}

func (s *ImporterTestSuite) TestImport_LedgerErrors() {
	rcpt := &receipt.Detailed{ID: "r-2", Date: purchaseDate, Currency: receipt.Currency{ID: "SEK"}}

	s.ledger.On("Imported", mock.Anything, "r-2").Return(false, assert.AnError).Once()
	_, err := s.importer.Import(context.Background(), rcpt, nil)
	s.ErrorIs(err, assert.AnError)

	s.ledger.On("Imported", mock.Anything, "r-2").Return(false, nil).Once()
	s.ledger.On("SaveRun", mock.Anything, mock.Anything).Return(assert.AnError).Once()
	report, err := s.importer.Import(context.Background(), rcpt, nil)
	s.ErrorIs(err, assert.AnError)
	s.Require().NotNil(report, "the report is still returned when persisting it fails")
	s.Equal(constants.RunStatusCompleted, report.Status())
	s.ledger.AssertExpectations(s.T())
}

func (s *ImporterTestSuite) TestImport_SinkFailureKeepsRecordedUnits() {
	rcpt := &receipt.Detailed{
		ID: "r-3", Date: purchaseDate, Currency: receipt.Currency{ID: "SEK"},
		Items: []receipt.Item{{UnitPrice: 79.9, Quantity: 2, Name: "Grytbitar", Barcode: "lidl-0051496"}},
	}
	s.ledger.On("Imported", mock.Anything, "r-3").Return(false, nil).Once()
	s.catalog.On("ProductByBarcode", mock.Anything, "lidl-0051496").Return(grytbitar(), nil).Once()
	s.sink.On("Purchase", mock.Anything, mock.Anything).Return("tx-1", nil).Once()
	s.sink.On("Purchase", mock.Anything, mock.Anything).Return("", assert.AnError).Once()
	s.ledger.On("SaveRun", mock.Anything, mock.Anything).Return(nil).Once()

	report, err := s.importer.Import(context.Background(), rcpt, nil)

	s.Require().NoError(err)
	s.Empty(report.Purchased)
	s.Require().Len(report.Skipped, 1)
	s.Equal(ReasonSinkError, report.Skipped[0].Reason)
	s.Equal([]string{"tx-1"}, report.Skipped[0].TransactionIDs)
	s.sink.AssertNotCalled(s.T(), "UpdateLastPrice", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ImporterTestSuite) TestImport_Canceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ledger.On("Imported", mock.Anything, mock.Anything).Return(false, nil).Once()

	report, err := s.importer.Import(ctx, testReceipt(), nil)

	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(report)
	s.Empty(report.Purchased)
	s.ledger.AssertNotCalled(s.T(), "SaveRun", mock.Anything, mock.Anything)
}

func TestImporterTestSuite(t *testing.T) {
	suite.Run(t, new(ImporterTestSuite))
}

func TestImport_WithoutLedgerUsesRecordingSink(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("ProductByBarcode", mock.Anything, "lidl-0051496").Return(grytbitar(), nil)
	sink := NewRecordingSink()

	rcpt := &receipt.Detailed{
		ID: "r-4", Date: purchaseDate, Currency: receipt.Currency{ID: "SEK"},
		Items: []receipt.Item{{UnitPrice: 10, Quantity: 3, Name: "Grytbitar", Barcode: "lidl-0051496"}},
	}
	report, err := New(catalog, sink).Import(context.Background(), rcpt, nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, constants.RunStatusCompleted, report.Status())
	assert.InDelta(t, 30.0, report.Spent(), 1e-9)

	recorded := sink.Purchases()
	assert.Len(t, recorded, 3)
	seen := map[string]bool{}
	for _, r := range recorded {
		seen[r.TransactionID] = true
	}
	assert.Len(t, seen, 3, "transaction ids are unique")

	price, ok := sink.LastPrice("lidl-0051496")
	assert.True(t, ok)
	assert.InDelta(t, 10.0, price, 1e-9)
}

func TestImport_OriginLandsOnReport(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("ProductByBarcode", mock.Anything, "lidl-0051496").Return(grytbitar(), nil)

	rcpt := &receipt.Detailed{
		ID: "r-5", Date: purchaseDate, Currency: receipt.Currency{ID: "SEK"},
		Items: []receipt.Item{{UnitPrice: 10, Quantity: 1, Name: "Grytbitar", Barcode: "lidl-0051496"}},
	}
	ctx := WithOrigin(context.Background(), Origin{Path: "/receipts/r-5.html", Format: constants.FormatHTML})
	report, err := New(catalog, NewRecordingSink()).Import(ctx, rcpt, nil)

	assert.NoError(t, err)
	assert.Equal(t, "/receipts/r-5.html", report.Source)
	assert.Equal(t, constants.FormatHTML, report.Format)
}
