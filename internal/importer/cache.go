package importer

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/grocery-receipts/internal/reconcile"
)

// CachedCatalog memoizes successful lookups of another resolver.
type CachedCatalog struct {
	next  CatalogResolver
	cache *cache.Cache
}

func NewCachedCatalog(next CatalogResolver, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedCatalog) ProductByBarcode(ctx context.Context, barcode string) (*reconcile.Resolved, error) {
	key := "barcode:" + barcode
	if v, ok := c.cache.Get(key); ok {
		return v.(*reconcile.Resolved), nil
	}
	resolved, err := c.next.ProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, resolved)
	return resolved, nil
}

func (c *CachedCatalog) QuantityUnitName(ctx context.Context, unitID int) (string, error) {
	key := "unit:" + strconv.Itoa(unitID)
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	name, err := c.next.QuantityUnitName(ctx, unitID)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, name)
	return name, nil
}

// Flush drops every cached entry.
func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}
