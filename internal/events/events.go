// Package events publishes order lifecycle events for downstream consumers
// (fulfilment, notifications, analytics). Publishing is best-effort: a
// settled order is durable in the ledger before any event is emitted, and a
// publish failure never fails the checkout.
package events

import (
	"context"
	"time"
)

// OrderSettled is emitted after an order is durably recorded.
type OrderSettled struct {
	OrderID          string    `json:"orderId"`
	UserID           string    `json:"userId"`
	TotalAmount      int64     `json:"totalAmount"`
	Currency         string    `json:"currency"`
	GatewayPaymentID string    `json:"gatewayPaymentId,omitempty"`
	SettledAt        time.Time `json:"settledAt"`
}

// Publisher emits order events.
type Publisher interface {
	PublishOrderSettled(ctx context.Context, event OrderSettled) error
	Close()
}

// NoopPublisher discards all events. Used when eventing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderSettled(ctx context.Context, event OrderSettled) error {
	return nil
}

func (NoopPublisher) Close() {}
