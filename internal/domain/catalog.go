package domain

import "context"

// Product is the slice of catalog data the checkout flow needs. The catalog
// itself (listing, rendering, CRUD) is an external collaborator.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64 // major units (whole rupees)
	Sizes       []string
	Image       string
}

// StockReader supplies a live stock snapshot for cart validation.
type StockReader interface {
	// AvailableStock returns the sellable quantity for a (product, size)
	// pair. Zero means sold out; an unknown pair is also zero.
	AvailableStock(ctx context.Context, productID, size string) (int64, error)
}
