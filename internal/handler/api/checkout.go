package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/falsenine/storefront/internal/cart"
	"github.com/falsenine/storefront/internal/checkout"
	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/gateway"
	"github.com/falsenine/storefront/internal/handler"
	"github.com/falsenine/storefront/internal/service"
	"github.com/falsenine/storefront/internal/telemetry"
)

// ProductFinder resolves products for cart additions.
type ProductFinder interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// CheckoutDeps collects the collaborators shared by all checkout sessions.
type CheckoutDeps struct {
	Catalog    ProductFinder
	Identity   domain.IdentityProvider
	Addresses  domain.AddressResolver
	Stock      domain.StockReader
	Provider   gateway.Provider
	Settlement service.SettlementService
	Currency   string
	Metrics    *telemetry.BusinessMetrics
	Logger     *slog.Logger
}

// CheckoutHandler drives hosted-UI checkout sessions over HTTP. Each session
// owns a cart and a state machine held in process memory; the gateway UI
// settles a session through the payment verify endpoint, which resolves the
// session's waiter.
type CheckoutHandler struct {
	deps   CheckoutDeps
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

type checkoutSession struct {
	machine *checkout.Machine
	cart    *cart.Store

	// intents receives the gateway order created by an in-flight payment
	// attempt so the client can launch the gateway UI.
	intents chan *gateway.PaymentIntent

	mu      sync.Mutex
	order   *domain.Order
	lastErr error
}

// NewCheckoutHandler creates the session surface.
func NewCheckoutHandler(deps CheckoutDeps) (*CheckoutHandler, error) {
	if deps.Catalog == nil || deps.Identity == nil || deps.Addresses == nil ||
		deps.Stock == nil || deps.Provider == nil || deps.Settlement == nil {
		return nil, fmt.Errorf("checkout handler: missing dependency")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &CheckoutHandler{
		deps:     deps,
		logger:   deps.Logger,
		sessions: make(map[string]*checkoutSession),
	}, nil
}

func (h *CheckoutHandler) newSession() (*checkoutSession, error) {
	session := &checkoutSession{
		intents: make(chan *gateway.PaymentIntent, 1),
	}
	session.cart = cart.NewStore(h.deps.Stock).WithMetrics(h.deps.Metrics)

	provider := &recordingProvider{
		Provider: h.deps.Provider,
		record: func(intent *gateway.PaymentIntent) {
			select {
			case session.intents <- intent:
			default:
			}
		},
	}

	machine, err := checkout.NewMachine(checkout.Deps{
		Cart:       session.cart,
		Identity:   h.deps.Identity,
		Addresses:  h.deps.Addresses,
		Stock:      h.deps.Stock,
		Provider:   provider,
		Settlement: h.deps.Settlement,
		Currency:   h.deps.Currency,
		Metrics:    h.deps.Metrics,
		Logger:     h.logger,
	}, nil)
	if err != nil {
		return nil, err
	}
	session.machine = machine
	return session, nil
}

// recordingProvider surfaces the created intent to the session before the
// machine blocks on the gateway UI.
type recordingProvider struct {
	gateway.Provider
	record func(*gateway.PaymentIntent)
}

func (p *recordingProvider) CreateIntent(ctx context.Context, amount int64, currency string) (*gateway.PaymentIntent, error) {
	intent, err := p.Provider.CreateIntent(ctx, amount, currency)
	if err == nil {
		p.record(intent)
	}
	return intent, err
}

func (h *CheckoutHandler) session(id string) (*checkoutSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// StartSession handles POST /checkout/session.
func (h *CheckoutHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.newSession()
	if err != nil {
		handler.ErrorResponse(w, r, domain.Internal(err, "api.checkout_start", "could not start checkout session"))
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.sessions[id] = session
	h.mu.Unlock()

	handler.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"sessionId": id,
		"state":     session.machine.State(),
	})
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int64  `json:"quantity"`
}

// AddItem handles POST /checkout/session/{sessionId}/items.
func (h *CheckoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_add_item"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}

	product, err := h.deps.Catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := session.cart.Add(r.Context(), *product, req.Size, req.Quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary := session.cart.Summary()
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"total":     summary.Total,
		"itemCount": summary.ItemCount,
	})
}

// Proceed handles POST /checkout/session/{sessionId}/proceed.
func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_proceed"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	state, err := session.machine.Proceed(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	respondState(w, state)
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate handles POST /checkout/session/{sessionId}/authenticate.
func (h *CheckoutHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_authenticate"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}

	state, err := session.machine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	respondState(w, state)
}

// SubmitAddress handles POST /checkout/session/{sessionId}/address.
func (h *CheckoutHandler) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_address"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid request body"))
		return
	}

	state, err := session.machine.SubmitAddress(r.Context(), &addr)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	respondState(w, state)
}

// Pay handles POST /checkout/session/{sessionId}/pay. The payment attempt
// runs in the background while the gateway UI is up; the response carries
// the gateway order the client hands to that UI. The attempt is finished by
// the payment verify or dismiss endpoint, and the session endpoint reports
// the result.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_pay"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	attemptDone := make(chan struct{})
	go func() {
		defer close(attemptDone)
		order, err := session.machine.ConfirmAndPay(context.Background())
		session.mu.Lock()
		session.order = order
		session.lastErr = err
		session.mu.Unlock()
	}()

	select {
	case intent := <-session.intents:
		handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"id":       intent.GatewayOrderID,
			"amount":   intent.AmountMinorUnits,
			"currency": intent.Currency,
			"state":    session.machine.State(),
		})
	case <-attemptDone:
		// The attempt failed before an intent existed (empty cart, stock,
		// re-entrancy, gateway down).
		session.mu.Lock()
		err := session.lastErr
		session.mu.Unlock()
		if err == nil {
			err = domain.Internal(nil, op, "payment attempt ended without an intent")
		}
		handler.ErrorResponse(w, r, err)
	case <-time.After(15 * time.Second):
		handler.ErrorResponse(w, r, domain.Unavailable(nil, op, "payment gateway did not produce an order in time"))
	}
}

// GetSession handles GET /checkout/session/{sessionId}.
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout_session"

	session, ok := h.session(r.PathValue("sessionId"))
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound(op, "checkout session", r.PathValue("sessionId")))
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"state":   session.machine.State(),
	}
	session.mu.Lock()
	if session.order != nil {
		resp["orderId"] = session.order.OrderID
	}
	if session.lastErr != nil {
		resp["error"] = domain.ErrorMessage(session.lastErr)
		resp["code"] = domain.ErrorCode(session.lastErr)
	}
	session.mu.Unlock()

	handler.RespondJSON(w, http.StatusOK, resp)
}

func respondState(w http.ResponseWriter, state checkout.State) {
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"state":   state,
	})
}
