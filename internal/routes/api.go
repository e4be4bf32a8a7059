package routes

import (
	"fmt"
	"net/http"

	"github.com/falsenine/storefront/internal/handler/api"
	"github.com/falsenine/storefront/internal/router"
)

// RegisterAPIRoutes registers JSON API routes called by the checkout client
// These routes do not require authentication and return JSON envelopes
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Payments
	r.Post("/payments/create-transaction", deps.PaymentHandler.CreateTransaction)
	r.Post("/payments/verify", deps.PaymentHandler.VerifyPayment)
	r.Post("/payments/dismiss", deps.PaymentHandler.DismissPayment)

	// Orders
	r.Post("/orders", deps.OrderHandler.SaveOrder)
	r.Get("/orders/user/{userId}", deps.OrderHandler.ListUserOrders)
	r.Get("/orders/recent/all", deps.OrderHandler.ListRecentOrders)
	r.Get("/orders/{orderId}", deps.OrderHandler.GetOrder)

	// Operational endpoints
	registerOperational(r, deps)
}

// RegisterCheckoutRoutes registers the in-process checkout session surface.
// The server enables it outside production only.
func RegisterCheckoutRoutes(r *router.Router, h *api.CheckoutHandler) {
	r.Post("/checkout/session", h.StartSession)
	r.Get("/checkout/session/{sessionId}", h.GetSession)
	r.Post("/checkout/session/{sessionId}/items", h.AddItem)
	r.Post("/checkout/session/{sessionId}/proceed", h.Proceed)
	r.Post("/checkout/session/{sessionId}/authenticate", h.Authenticate)
	r.Post("/checkout/session/{sessionId}/address", h.SubmitAddress)
	r.Post("/checkout/session/{sessionId}/pay", h.Pay)
}

func registerOperational(r *router.Router, deps APIDeps) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}
