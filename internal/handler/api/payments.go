// Package api contains the JSON HTTP handlers for checkout and orders.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/gateway"
	"github.com/falsenine/storefront/internal/handler"
	"github.com/falsenine/storefront/internal/service"
)

// PaymentHandler exposes the payment gateway endpoints.
type PaymentHandler struct {
	provider   gateway.Provider
	registry   *gateway.CallbackRegistry
	settlement service.SettlementService
	keySecret  string
	logger     *slog.Logger
}

// NewPaymentHandler creates a new payment handler. registry may be nil when
// no hosted payment UI waiters exist in this process. keySecret is the
// gateway signing secret used to vet callbacks before a waiter is resolved.
func NewPaymentHandler(provider gateway.Provider, registry *gateway.CallbackRegistry, settlement service.SettlementService, keySecret string, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		provider:   provider,
		registry:   registry,
		settlement: settlement,
		keySecret:  keySecret,
		logger:     logger,
	}
}

type createTransactionRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateTransaction handles POST /payments/create-transaction.
// Amount arrives in major currency units; the response carries the gateway
// order with the amount in minor units, as the gateway reports it.
func (h *PaymentHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_transaction"

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}
	if req.Amount <= 0 {
		handler.ErrorResponse(w, r, domain.Invalid(op, "amount must be positive"))
		return
	}

	intent, err := h.provider.CreateIntent(r.Context(), req.Amount, req.Currency)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"id":       intent.GatewayOrderID,
		"amount":   intent.AmountMinorUnits,
		"currency": intent.Currency,
		"receipt":  intent.Receipt,
	})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string       `json:"razorpay_order_id"`
	RazorpayPaymentID string       `json:"razorpay_payment_id"`
	RazorpaySignature string       `json:"razorpay_signature"`
	Order             domain.Order `json:"order"`
}

// VerifyPayment handles POST /payments/verify.
// Verifies the settlement callback and records the order. Any in-process
// checkout waiting on this gateway order is resolved as well.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify_payment"

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}

	cb := gateway.SettlementCallback{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	}

	// Only a signed callback may resolve a hosted-UI waiter. Anything else
	// falls through to the settlement service, which owns the rejection
	// policy for unverified callbacks.
	if h.registry != nil && gateway.VerifySignature(cb, h.keySecret) {
		if err := h.registry.Deliver(cb); err == nil {
			// A hosted-UI checkout owns this payment; it settles the
			// order itself.
			handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
			})
			return
		} else if !errors.Is(err, gateway.ErrUnknownIntent) {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	orderID, err := h.settlement.VerifyAndRecord(r.Context(), cb, &req.Order)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orderId": orderID,
	})
}

type dismissPaymentRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
}

// DismissPayment handles POST /payments/dismiss.
// Reports that the user closed the gateway UI without paying.
func (h *PaymentHandler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_payment"

	var req dismissPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}
	if req.RazorpayOrderID == "" {
		handler.ErrorResponse(w, r, domain.Invalid(op, "razorpay_order_id is required"))
		return
	}

	if h.registry != nil {
		if err := h.registry.Dismiss(req.RazorpayOrderID); err != nil {
			handler.ErrorResponse(w, r, domain.NotFound(op, "pending payment", req.RazorpayOrderID))
			return
		}
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
