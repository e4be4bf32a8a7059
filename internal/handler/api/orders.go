package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/handler"
	"github.com/falsenine/storefront/internal/service"
)

// defaultRecentLimit caps GET /orders/recent/all when no limit is given.
const defaultRecentLimit = 50

// OrderHandler exposes order ledger reads plus the test-mode direct save.
type OrderHandler struct {
	ledger     domain.OrderLedger
	settlement service.SettlementService
	testMode   bool
	logger     *slog.Logger
}

// NewOrderHandler creates a new order handler. testMode enables the direct
// save endpoint; it must be false in production.
func NewOrderHandler(ledger domain.OrderLedger, settlement service.SettlementService, testMode bool, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		ledger:     ledger,
		settlement: settlement,
		testMode:   testMode,
		logger:     logger,
	}
}

// SaveOrder handles POST /orders.
// Records an order without settlement verification. Only available in test
// mode; production deployments answer 403.
func (h *OrderHandler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_order"

	if !h.testMode {
		handler.ErrorResponse(w, r, domain.Forbidden(op, "direct order save is disabled"))
		return
	}

	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}

	orderID, err := h.settlement.RecordDirect(r.Context(), &order)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"orderId": orderID,
	})
}

// GetOrder handles GET /orders/{orderId}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")

	order, err := h.ledger.GetByID(r.Context(), orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

// ListUserOrders handles GET /orders/user/{userId}.
// Orders are returned newest-first.
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	orders, err := h.ledger.ListByUser(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

// ListRecentOrders handles GET /orders/recent/all.
// An optional ?limit= query bounds the result.
func (h *OrderHandler) ListRecentOrders(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	orders, err := h.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}
