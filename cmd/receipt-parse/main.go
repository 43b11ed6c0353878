package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/ingest"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

type itemView struct {
	Name          string    `json:"name"`
	Barcode       string    `json:"barcode"`
	UnitPrice     float64   `json:"unit_price"`
	Quantity      float64   `json:"quantity"`
	IsWeight      bool      `json:"is_weight"`
	Discounts     []float64 `json:"discounts"`
	LineAmount    float64   `json:"line_amount"`
	TotalDiscount float64   `json:"total_discount"`
}

type receiptView struct {
	ID       string           `json:"id"`
	Date     string           `json:"date"`
	Currency receipt.Currency `json:"currency"`
	Store    receipt.Store    `json:"store"`
	Total    string           `json:"total"`
	Items    []itemView       `json:"items"`
	Hash     string           `json:"sha256"`
}

func main() {
	var (
		file   = flag.String("file", "", "receipt file (.html/.htm/.json) (required)")
		pretty = flag.Bool("pretty", true, "indent JSON output")
	)
	flag.Parse()
	if *file == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Import.Timezone, "error", err)
		os.Exit(1)
	}

	loaded, err := ingest.NewFSLoader(loc, logger).LoadReceipt(context.Background(), *file)
	if err != nil {
		logger.Error("failed to parse receipt", "file", *file, "error", err)
		os.Exit(1)
	}

	rcpt := loaded.Receipt
	view := receiptView{
		ID:       rcpt.ID,
		Date:     rcpt.Date.Format("2006-01-02T15:04:05Z07:00"),
		Currency: rcpt.Currency,
		Store:    rcpt.Store,
		Total:    rcpt.Total().StringFixed(rcpt.Currency.Precision()),
		Hash:     loaded.HashHex,
	}
	for _, it := range rcpt.Items {
		v := itemView{
			Name:          it.Name,
			Barcode:       it.Barcode,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			IsWeight:      it.IsWeight,
			Discounts:     make([]float64, 0, len(it.Discounts)),
			LineAmount:    it.LineAmount(),
			TotalDiscount: it.TotalDiscount(),
		}
		for _, d := range it.Discounts {
			v.Discounts = append(v.Discounts, d.Amount)
		}
		view.Items = append(view.Items, v)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(view); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}
