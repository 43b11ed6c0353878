// Package catalog serves inventory catalog lookups from a snapshot exported
// from the inventory system.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
	"github.com/joseph-ayodele/grocery-receipts/internal/utils"
)

type Product struct {
	ID                       int              `json:"id"`
	Name                     string           `json:"name"`
	LocationID               utils.OptionalID `json:"location_id"`
	DefaultBestBeforeDays    int              `json:"default_best_before_days"`
	QuantityUnitIDPurchase   utils.OptionalID `json:"qu_id_purchase"`
	QuantityUnitIDStock      int              `json:"qu_id_stock"`
	PurchaseToStockFactor    float64          `json:"qu_factor_purchase_to_stock"`
	EnableTareWeightHandling int              `json:"enable_tare_weight_handling"`
}

type ProductBarcode struct {
	ID             int              `json:"id"`
	ProductID      int              `json:"product_id"`
	Barcode        string           `json:"barcode"`
	QuantityUnitID utils.OptionalID `json:"qu_id"`
	Amount         *float64         `json:"amount"`
	Note           *string          `json:"note"`
}

type QuantityUnit struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NamePlural string `json:"name_plural"`
}

type Location struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsFreezer int    `json:"is_freezer"`
}

type ShoppingLocation struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the on-disk catalog document. Stores maps a retail store id to
// a shopping location id.
type Snapshot struct {
	Products          []Product          `json:"products"`
	ProductBarcodes   []ProductBarcode   `json:"product_barcodes"`
	QuantityUnits     []QuantityUnit     `json:"quantity_units"`
	Locations         []Location         `json:"locations"`
	ShoppingLocations []ShoppingLocation `json:"shopping_locations"`
	Stores            map[string]int     `json:"stores"`
}

// Catalog is an immutable index over a Snapshot.
type Catalog struct {
	products  map[int]Product
	barcodes  map[string]ProductBarcode
	units     map[int]QuantityUnit
	locations map[int]Location
	shopping  map[int]ShoppingLocation
	stores    map[string]int
	logger    *slog.Logger
}

// Load reads a snapshot file.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, common.NewAppError("CATALOG_ERROR", "decode snapshot", err)
	}
	return New(snap, logger), nil
}

func New(snap Snapshot, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		products:  make(map[int]Product, len(snap.Products)),
		barcodes:  make(map[string]ProductBarcode, len(snap.ProductBarcodes)),
		units:     make(map[int]QuantityUnit, len(snap.QuantityUnits)),
		locations: make(map[int]Location, len(snap.Locations)),
		shopping:  make(map[int]ShoppingLocation, len(snap.ShoppingLocations)),
		stores:    make(map[string]int, len(snap.Stores)),
		logger:    logger,
	}
	for _, p := range snap.Products {
		c.products[p.ID] = p
	}
	for _, b := range snap.ProductBarcodes {
		key := strings.TrimSpace(b.Barcode)
		if prev, dup := c.barcodes[key]; dup {
			logger.Warn("catalog.barcode.duplicate", "barcode", key, "kept_id", b.ID, "dropped_id", prev.ID)
		}
		c.barcodes[key] = b
	}
	for _, u := range snap.QuantityUnits {
		c.units[u.ID] = u
	}
	for _, l := range snap.Locations {
		c.locations[l.ID] = l
	}
	for _, s := range snap.ShoppingLocations {
		c.shopping[s.ID] = s
	}
	for storeID, id := range snap.Stores {
		c.stores[storeID] = id
	}
	logger.Info("catalog.loaded",
		"products", len(c.products),
		"barcodes", len(c.barcodes),
		"quantity_units", len(c.units),
	)
	return c
}

func (c *Catalog) ProductByBarcode(_ context.Context, barcode string) (*reconcile.Resolved, error) {
	b, ok := c.barcodes[strings.TrimSpace(barcode)]
	if !ok {
		return nil, fmt.Errorf("barcode %q: %w", barcode, common.ErrProductNotFound)
	}
	p, ok := c.products[b.ProductID]
	if !ok {
		return nil, fmt.Errorf("barcode %q references product %d: %w", barcode, b.ProductID, common.ErrProductNotFound)
	}

	stockUnit := p.QuantityUnitIDStock
	purchaseUnit := stockUnit
	if p.QuantityUnitIDPurchase.Valid {
		purchaseUnit = p.QuantityUnitIDPurchase.ID
	}

	return &reconcile.Resolved{
		Product: reconcile.Product{
			ID:                       p.ID,
			Name:                     p.Name,
			DefaultBestBeforeDays:    p.DefaultBestBeforeDays,
			LocationID:               p.LocationID.Ptr(),
			StockUnitID:              stockUnit,
			PurchaseUnitID:           purchaseUnit,
			PurchaseToStockFactor:    p.PurchaseToStockFactor,
			EnableTareWeightHandling: p.EnableTareWeightHandling != 0,
		},
		PackAmount: b.Amount,
		PackUnitID: b.QuantityUnitID.Ptr(),
		Note:       utils.StrOrEmpty(b.Note),
	}, nil
}

func (c *Catalog) QuantityUnitName(_ context.Context, unitID int) (string, error) {
	u, ok := c.units[unitID]
	if !ok {
		return "", common.NewAppError("NOT_FOUND", fmt.Sprintf("quantity unit %d", unitID), common.ErrNotFound)
	}
	return u.Name, nil
}

// ShoppingLocationFor maps a retail store id to its shopping location, nil
// when the store was never mapped.
func (c *Catalog) ShoppingLocationFor(storeID string) *int {
	id, ok := c.stores[storeID]
	if !ok {
		return nil
	}
	if _, known := c.shopping[id]; !known {
		c.logger.Warn("catalog.store.unknown_shopping_location", "store_id", storeID, "shopping_location_id", id)
		return nil
	}
	return &id
}

// LocationName returns the display name of a storage location, marking freezers.
func (c *Catalog) LocationName(id int) (string, bool) {
	l, ok := c.locations[id]
	if !ok {
		return "", false
	}
	if l.IsFreezer != 0 {
		return l.Name + " ❄️", true
	}
	return l.Name, true
}
