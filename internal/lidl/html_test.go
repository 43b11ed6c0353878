package lidl

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

var testStore = receipt.Store{ID: "SE3002", Name: "Stockholm Sveavägen"}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func parseString(doc string) (*receipt.Detailed, error) {
	return ParseHTMLReceipt("r-1", time.Date(2024, 1, 5, 14, 3, 9, 0, time.UTC), testStore, strings.NewReader(doc))
}

func TestParseHTMLReceipt_SwedishFixture(t *testing.T) {
	date := time.Date(2024, 1, 5, 14, 3, 9, 0, time.Local)
	got, err := ParseHTMLReceiptBytes("230020240105140309", date, testStore, loadFixture(t, "receipt_se.html"))
	require.NoError(t, err)

	assert.Equal(t, "230020240105140309", got.ID)
	assert.Equal(t, date, got.Date)
	assert.Equal(t, testStore, got.Store)
	assert.Equal(t, receipt.Currency{ID: "SEK", Symbol: "kr"}, got.Currency)
	require.Len(t, got.Items, 4, "sub-lines must not produce items")

	grytbitar := got.Items[0]
	assert.Equal(t, "Grytbitar", grytbitar.Name)
	assert.InDelta(t, 79.9, grytbitar.UnitPrice, 1e-9)
	assert.InDelta(t, 2.0, grytbitar.Quantity, 1e-9)
	assert.False(t, grytbitar.IsWeight)
	assert.Equal(t, "lidl-0051496", grytbitar.Barcode)
	require.Len(t, grytbitar.Discounts, 1)
	assert.InDelta(t, 7.92, grytbitar.Discounts[0].Amount, 1e-9)

	farsen := got.Items[1]
	assert.Equal(t, "Fläskfärs 20%", farsen.Name)
	assert.InDelta(t, 67.9, farsen.UnitPrice, 1e-9)
	assert.InDelta(t, 0.957, farsen.Quantity, 1e-9)
	assert.True(t, farsen.IsWeight)
	assert.Equal(t, "lidl-7006839", farsen.Barcode)
	require.Len(t, farsen.Discounts, 1)
	assert.InDelta(t, 3.22, farsen.Discounts[0].Amount, 1e-9)

	potatis := got.Items[2]
	assert.Equal(t, "Sötpotatis", potatis.Name)
	assert.InDelta(t, 29.9, potatis.UnitPrice, 1e-9)
	assert.InDelta(t, 0.472, potatis.Quantity, 1e-9)
	assert.True(t, potatis.IsWeight)
	assert.Equal(t, "lidl-0080755", potatis.Barcode)
	require.Len(t, potatis.Discounts, 2, "both discounts belong to the same item")
	assert.InDelta(t, 2.83, potatis.Discounts[0].Amount, 1e-9)
	assert.InDelta(t, 0.56, potatis.Discounts[1].Amount, 1e-9)

	milk := got.Items[3]
	assert.Equal(t, "Mellanmjölk 1,5%", milk.Name)
	assert.InDelta(t, 1.0, milk.Quantity, 1e-9)
	assert.False(t, milk.IsWeight)
	assert.Empty(t, milk.Discounts)
	assert.NotNil(t, milk.Discounts)
	assert.Nil(t, milk.OriginalAmount)
}

func TestParseHTMLReceipt_DuplicateSpans(t *testing.T) {
	got, err := ParseHTMLReceiptBytes("de-1", time.Now(), receipt.Store{}, loadFixture(t, "receipt_de_duplicates.html"))
	require.NoError(t, err)

	assert.Equal(t, receipt.Currency{ID: "EUR", Symbol: "€"}, got.Currency)
	require.Len(t, got.Items, 2)

	veg := got.Items[0]
	assert.Equal(t, "Veg. Reibegenuss", veg.Name)
	assert.InDelta(t, 0.89, veg.UnitPrice, 1e-9, "the last element with a given id wins")
	assert.InDelta(t, 2.0, veg.Quantity, 1e-9)
	assert.False(t, veg.IsWeight)

	bananas := got.Items[1]
	assert.Equal(t, "lidl-0080371", bananas.Barcode)
	assert.True(t, bananas.IsWeight)
	assert.InDelta(t, 1.135, bananas.Quantity, 1e-9)
	require.Len(t, bananas.Discounts, 1)
	assert.InDelta(t, 0.30, bananas.Discounts[0].Amount, 1e-9)
}

func TestParseHTMLReceipt_AdjacentDuplicatesCollapse(t *testing.T) {
	doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>
<span id="purchase_list_line_2" class="article" data-art-id="2" data-art-description="B" data-unit-price="2,00">B</span>`

	got, err := parseString(doc)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "lidl-1", got.Items[0].Barcode)
	assert.Equal(t, "lidl-2", got.Items[1].Barcode)
}

func TestParseHTMLReceipt_NonAdjacentSameIDIsKept(t *testing.T) {
	doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>
<span id="purchase_list_line_2" class="article" data-art-id="2" data-art-description="B" data-unit-price="2,00">B</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>`

	got, err := parseString(doc)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
}

func TestParseHTMLReceipt_WeightInference(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		want     float64
		isWeight bool
	}{
		{name: "absent", quantity: "", want: 1.0, isWeight: false},
		{name: "integer count", quantity: `data-art-quantity="3"`, want: 3.0, isWeight: false},
		{name: "comma weight", quantity: `data-art-quantity="0,957"`, want: 0.957, isWeight: true},
		{name: "whole kilos with comma", quantity: `data-art-quantity="1,000"`, want: 1.0, isWeight: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>` +
				`<span id="purchase_list_line_1" class="article" data-art-id="9" data-art-description="X" data-unit-price="10,5" ` +
				tt.quantity + `>X</span>`
			got, err := parseString(doc)
			require.NoError(t, err)
			require.Len(t, got.Items, 1)
			assert.InDelta(t, tt.want, got.Items[0].Quantity, 1e-9)
			assert.Equal(t, tt.isWeight, got.Items[0].IsWeight)
		})
	}
}

func TestParseHTMLReceipt_Errors(t *testing.T) {
	const currency = `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>`

	tests := []struct {
		name       string
		doc        string
		want       error
		wantDetail string
	}{
		{
			name: "no currency",
			doc:  `<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>`,
			want: ErrMissingCurrency,
		},
		{
			name: "currency outside line elements",
			doc:  `<span class="currency" data-currency="kr">SEK</span>`,
			want: ErrMissingCurrency,
		},
		{
			name: "discount before any article",
			doc: currency + `<span id="purchase_list_line_1" class="discount">Rabatt -1,00</span>` +
				`<span id="purchase_list_line_2" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>`,
			want: ErrDiscountWithoutPrecedingItem,
		},
		{
			name:       "missing article id",
			doc:        currency + `<span id="purchase_list_line_1" class="article" data-art-description="A" data-unit-price="1,00">A</span>`,
			want:       ErrMissingAttribute,
			wantDetail: "data-art-id",
		},
		{
			name:       "missing unit price",
			doc:        currency + `<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A">A</span>`,
			want:       ErrMissingAttribute,
			wantDetail: "data-unit-price",
		},
		{
			name:       "missing description",
			doc:        currency + `<span id="purchase_list_line_1" class="article" data-art-id="1" data-unit-price="1,00">A</span>`,
			want:       ErrMissingAttribute,
			wantDetail: "data-art-description",
		},
		{
			name:       "missing currency symbol",
			doc:        `<span id="purchase_list_line_0" class="currency">SEK</span>`,
			want:       ErrMissingAttribute,
			wantDetail: "data-currency",
		},
		{
			name:       "bad unit price",
			doc:        currency + `<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="gratis">A</span>`,
			want:       ErrUnparsableNumber,
			wantDetail: "unit price",
		},
		{
			name:       "bad quantity",
			doc:        currency + `<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00" data-art-quantity="två">A</span>`,
			want:       ErrUnparsableNumber,
			wantDetail: "quantity",
		},
		{
			name: "bad discount",
			doc: currency + `<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="1,00">A</span>` +
				`<span id="purchase_list_line_2" class="discount">Rabatt gratis</span>`,
			want:       ErrUnparsableNumber,
			wantDetail: "discount amount",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.doc)
			require.Error(t, err)
			assert.Nil(t, got, "a failed parse never returns a partial receipt")
			assert.ErrorIs(t, err, tt.want)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, pe.Detail)
			}
		})
	}
}

func TestParseHTMLReceipt_DiscountIsAbsolute(t *testing.T) {
	doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="10,00">A</span>
<span id="purchase_list_line_2" class="discount">  Kupong   1,25  </span>
<span id="purchase_list_line_3" class="discount">Rabatt -0,75</span>`

	got, err := parseString(doc)
	require.NoError(t, err)
	require.Len(t, got.Items[0].Discounts, 2)
	assert.InDelta(t, 1.25, got.Items[0].Discounts[0].Amount, 1e-9)
	assert.InDelta(t, 0.75, got.Items[0].Discounts[1].Amount, 1e-9)
	assert.InDelta(t, 2.0, got.Items[0].TotalDiscount(), 1e-9)
}

func TestParseHTMLReceipt_NestedTextSubLine(t *testing.T) {
	doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>
<span id="purchase_list_line_1" class="article" data-art-id="1" data-art-description="A" data-unit-price="10,00"><b>A</b></span>
<span id="purchase_list_line_2" class="article" data-art-id="1" data-art-description="A" data-unit-price="10,00"><b> 2 x 10,00</b></span>`

	got, err := parseString(doc)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestHTMLExtractor_CurrencyLastWins(t *testing.T) {
	var logs bytes.Buffer
	x := NewHTMLExtractor(slog.New(slog.NewTextHandler(&logs, nil)))

	doc := `<span id="purchase_list_line_0" class="currency" data-currency="kr">SEK</span>
<span id="purchase_list_line_1" class="currency" data-currency="€">EUR</span>`

	got, err := x.Extract("r-2", time.Now(), receipt.Store{}, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, receipt.Currency{ID: "EUR", Symbol: "€"}, got.Currency)
	assert.Empty(t, got.Items)
	assert.Contains(t, logs.String(), "lidl.html.currency_overridden")
}
