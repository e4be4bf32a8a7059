package domain

import (
	"context"
	"time"
)

// Order status values. The checkout flow writes a single terminal status;
// PENDING and FAILED exist for records created outside the happy path.
const (
	OrderStatusPaid    = "PAID"
	OrderStatusPending = "PENDING"
	OrderStatusFailed  = "FAILED"
)

// ValidOrderStatus reports whether s is a recognized order status.
func ValidOrderStatus(s string) bool {
	return s == OrderStatusPaid || s == OrderStatusPending || s == OrderStatusFailed
}

// OrderLine is a point-in-time snapshot of a purchased item. It is taken at
// checkout and never re-derived from the catalog, so historical orders stay
// stable when catalog data changes.
type OrderLine struct {
	ProductID   string `json:"productId" validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,min=1"`
	UnitPrice   int64  `json:"unitPrice" validate:"min=0"`
	LineTotal   int64  `json:"lineTotal" validate:"min=0"`
	Size        string `json:"size,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Order is the durable record of a completed (or attempted) purchase.
// OrderID is generated client-side at checkout start and acts as the
// idempotency key for ledger writes.
type Order struct {
	OrderID          string      `json:"orderId" validate:"required"`
	UserID           string      `json:"userId" validate:"required"`
	UserEmail        string      `json:"userEmail" validate:"required,email"`
	Status           string      `json:"status" validate:"required"`
	TotalAmount      int64       `json:"totalAmount" validate:"min=0"`
	Currency         string      `json:"currency" validate:"required,len=3"`
	ShippingAddress  Address     `json:"shippingAddress"`
	Items            []OrderLine `json:"items" validate:"required,min=1,dive"`
	GatewayOrderID   string      `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string      `json:"gatewayPaymentId,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// ItemsTotal sums the line totals of the order.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotal
	}
	return total
}

// OrderLedger is the single place allowed to write order records.
// Implementations must guarantee at most one stored record per OrderID.
type OrderLedger interface {
	// Save validates and durably records an order. A repeated save with an
	// OrderID that already exists is a safe no-op returning the stored id.
	Save(ctx context.Context, order *Order) (string, error)

	// GetByID retrieves a single order. Returns an ENOTFOUND domain error
	// when no record exists.
	GetByID(ctx context.Context, orderID string) (*Order, error)

	// ListByUser returns a user's orders ordered newest-first by CreatedAt.
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// ListRecent returns the most recent orders across all users,
	// newest-first, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]Order, error)
}
