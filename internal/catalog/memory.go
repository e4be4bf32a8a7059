// Package catalog provides the product and stock collaborator. Catalog
// management is an external concern; checkout reads product snapshots and
// live stock counts from here.
package catalog

import (
	"context"
	"sync"

	"github.com/falsenine/storefront/internal/domain"
)

type stockKey struct {
	productID string
	size      string
}

// MemoryCatalog holds products and per-size stock counts in memory.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	stock    map[stockKey]int64
}

var _ domain.StockReader = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]domain.Product),
		stock:    make(map[stockKey]int64),
	}
}

// AddProduct registers a product and its per-size stock.
func (c *MemoryCatalog) AddProduct(p domain.Product, stockBySize map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
	for size, count := range stockBySize {
		c.stock[stockKey{p.ID, size}] = count
	}
}

// SetStock overrides the stock count for one (product, size) key.
func (c *MemoryCatalog) SetStock(productID, size string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[stockKey{productID, size}] = count
}

// GetProduct returns a product by id.
func (c *MemoryCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, domain.NotFound("catalog.get", "product", productID)
	}
	out := p
	return &out, nil
}

// AvailableStock returns the current stock for a (product, size) key.
// Unknown keys report zero stock rather than an error.
func (c *MemoryCatalog) AvailableStock(ctx context.Context, productID, size string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stock[stockKey{productID, size}], nil
}
