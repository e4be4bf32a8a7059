package routes

import (
	"net/http"

	"github.com/falsenine/storefront/internal/handler/api"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	// Payments (transaction creation, settlement verification, dismissal)
	PaymentHandler *api.PaymentHandler

	// Orders (recording, lookup, history)
	OrderHandler *api.OrderHandler

	// Prometheus scrape endpoint
	MetricsHandler http.Handler
}
