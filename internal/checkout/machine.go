// Package checkout orchestrates a single buyer's path from cart to settled
// order. One Machine per session; the machine serializes its own state
// transitions, while the gateway, settlement and ledger collaborators stay
// safe under many concurrent sessions.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/falsenine/storefront/internal/cart"
	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/gateway"
	"github.com/falsenine/storefront/internal/service"
	"github.com/falsenine/storefront/internal/telemetry"
)

// State is a checkout session state.
type State string

const (
	StateCart              State = "cart"
	StateAuthenticating    State = "authenticating"
	StateCollectingAddress State = "collecting_address"
	StateConfirmingAddress State = "confirming_address"
	StatePaying            State = "paying"
	StateSettled           State = "settled"
)

// Terminal reports whether the session is finished.
func (s State) Terminal() bool {
	return s == StateSettled
}

// canTransitionTo encodes the allowed state graph. Cancel back to StateCart
// is handled separately: it is legal from every non-terminal state except
// mid-payment.
func (s State) canTransitionTo(next State) bool {
	switch s {
	case StateCart:
		return next == StateAuthenticating || next == StateCollectingAddress || next == StateConfirmingAddress
	case StateAuthenticating:
		return next == StateCollectingAddress || next == StateConfirmingAddress
	case StateCollectingAddress:
		return next == StateConfirmingAddress
	case StateConfirmingAddress:
		return next == StatePaying || next == StateCollectingAddress
	case StatePaying:
		return next == StateSettled || next == StateCart || next == StateConfirmingAddress
	default:
		return false
	}
}

var (
	// ErrPaymentInFlight is returned when a payment attempt is already
	// running for this session. The second call has no effect.
	ErrPaymentInFlight = domain.Conflict("checkout.pay", "a payment attempt is already in flight")

	// ErrPaymentDismissed is returned when the user closes the gateway UI
	// without paying. No order is recorded and the cart is preserved.
	ErrPaymentDismissed = domain.Conflict("checkout.pay", "payment was dismissed")
)

// Machine drives one checkout session through its states.
type Machine struct {
	mu     sync.Mutex
	state  State
	paying bool

	user    *domain.User
	address *domain.Address

	cart       *cart.Store
	identity   domain.IdentityProvider
	addresses  domain.AddressResolver
	stock      domain.StockReader
	provider   gateway.Provider
	settlement service.SettlementService
	currency   string

	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// Deps collects the machine's collaborators.
type Deps struct {
	Cart       *cart.Store
	Identity   domain.IdentityProvider
	Addresses  domain.AddressResolver
	Stock      domain.StockReader
	Provider   gateway.Provider
	Settlement service.SettlementService
	Currency   string
	Metrics    *telemetry.BusinessMetrics
	Logger     *slog.Logger
}

// NewMachine creates a checkout machine in StateCart. An already
// authenticated user may be passed so checkout skips the auth step.
func NewMachine(deps Deps, user *domain.User) (*Machine, error) {
	if deps.Cart == nil || deps.Identity == nil || deps.Addresses == nil ||
		deps.Stock == nil || deps.Provider == nil || deps.Settlement == nil {
		return nil, fmt.Errorf("checkout: missing dependency")
	}
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Machine{
		state:      StateCart,
		user:       user,
		cart:       deps.Cart,
		identity:   deps.Identity,
		addresses:  deps.Addresses,
		stock:      deps.Stock,
		provider:   deps.Provider,
		settlement: deps.Settlement,
		currency:   deps.Currency,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}, nil
}

// State returns the current session state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Proceed starts checkout from the cart. With no authenticated session it
// moves to StateAuthenticating; otherwise it looks up the user's address and
// moves to StateConfirmingAddress or StateCollectingAddress.
func (m *Machine) Proceed(ctx context.Context) (State, error) {
	const op = "checkout.proceed"

	m.mu.Lock()
	if m.state != StateCart {
		defer m.mu.Unlock()
		return m.state, domain.Conflict(op, fmt.Sprintf("cannot proceed from state %q", m.state))
	}
	if m.cart.Len() == 0 {
		defer m.mu.Unlock()
		return m.state, domain.Invalid(op, "cart is empty")
	}
	user := m.user
	m.mu.Unlock()

	m.count(func(b *telemetry.BusinessMetrics) { b.CheckoutStarted.Inc() })

	if user == nil {
		return m.transition(op, StateAuthenticating)
	}
	return m.afterAuth(ctx, op, user)
}

// Authenticate completes the auth step. On success the address lookup
// decides the next state.
func (m *Machine) Authenticate(ctx context.Context, email, password string) (State, error) {
	const op = "checkout.authenticate"

	m.mu.Lock()
	if m.state != StateAuthenticating {
		defer m.mu.Unlock()
		return m.state, domain.Conflict(op, fmt.Sprintf("cannot authenticate from state %q", m.state))
	}
	m.mu.Unlock()

	user, err := m.identity.Authenticate(ctx, email, password)
	if err != nil {
		return StateAuthenticating, err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	return m.afterAuth(ctx, op, user)
}

// afterAuth routes to address collection or confirmation depending on
// whether the user already has a saved address.
func (m *Machine) afterAuth(ctx context.Context, op string, user *domain.User) (State, error) {
	addr, err := m.addresses.GetAddress(ctx, user.UserID)
	switch {
	case err == nil:
		m.mu.Lock()
		m.address = addr
		m.mu.Unlock()
		return m.transition(op, StateConfirmingAddress)
	case domain.ErrorCode(err) == domain.ENOTFOUND:
		return m.transition(op, StateCollectingAddress)
	default:
		return m.State(), err
	}
}

// SubmitAddress saves the shipping address and moves to confirmation.
func (m *Machine) SubmitAddress(ctx context.Context, addr *domain.Address) (State, error) {
	const op = "checkout.submit_address"

	m.mu.Lock()
	if m.state != StateCollectingAddress {
		defer m.mu.Unlock()
		return m.state, domain.Conflict(op, fmt.Sprintf("cannot submit address from state %q", m.state))
	}
	user := m.user
	m.mu.Unlock()

	addr.UserID = user.UserID
	if err := m.addresses.SaveAddress(ctx, addr); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	m.address = addr
	m.mu.Unlock()
	return m.transition(op, StateConfirmingAddress)
}

// EditAddress returns from confirmation to address entry.
func (m *Machine) EditAddress() (State, error) {
	const op = "checkout.edit_address"

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConfirmingAddress {
		return m.state, domain.Conflict(op, fmt.Sprintf("cannot edit address from state %q", m.state))
	}
	m.state = StateCollectingAddress
	return m.state, nil
}

// Cancel abandons the session back to StateCart. The cart is preserved.
// Cancel mid-payment is refused; the gateway UI owns that attempt.
func (m *Machine) Cancel() (State, error) {
	const op = "checkout.cancel"

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateSettled {
		return m.state, domain.Conflict(op, "checkout already settled")
	}
	if m.paying {
		return m.state, ErrPaymentInFlight
	}
	if m.state != StateCart {
		m.count(func(b *telemetry.BusinessMetrics) { b.CheckoutAbandoned.WithLabelValues(string(m.state)).Inc() })
	}
	m.state = StateCart
	return m.state, nil
}

// ConfirmAndPay runs the payment attempt: recompute the total, create a
// gateway intent, wait out the gateway UI, then verify and record. It is
// the only path that touches the payment gateway. A second call while one
// attempt is in flight returns ErrPaymentInFlight and does nothing.
func (m *Machine) ConfirmAndPay(ctx context.Context) (*domain.Order, error) {
	const op = "checkout.pay"

	m.mu.Lock()
	if m.paying {
		m.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	if m.state != StateConfirmingAddress {
		defer m.mu.Unlock()
		return nil, domain.Conflict(op, fmt.Sprintf("cannot pay from state %q", m.state))
	}
	m.paying = true
	m.state = StatePaying
	user := m.user
	address := m.address
	m.mu.Unlock()

	m.count(func(b *telemetry.BusinessMetrics) { b.CheckoutStep.WithLabelValues(string(StatePaying)).Inc() })

	order, err := m.runPayment(ctx, op, user, address)

	m.mu.Lock()
	m.paying = false
	if err != nil {
		if errors.Is(err, ErrPaymentDismissed) {
			m.state = StateCart
		} else {
			// Gateway or settlement failure: the user retries from
			// the confirmation step with the cart intact.
			m.state = StateConfirmingAddress
		}
	} else {
		m.state = StateSettled
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	m.cart.Clear()
	m.count(func(b *telemetry.BusinessMetrics) { b.CheckoutCompleted.Inc() })
	return order, nil
}

func (m *Machine) runPayment(ctx context.Context, op string, user *domain.User, address *domain.Address) (*domain.Order, error) {
	// Server-side recompute: never trust a total or stock level observed
	// earlier in the session.
	summary := m.cart.Summary()
	if len(summary.Lines) == 0 {
		return nil, domain.Invalid(op, "cart is empty")
	}
	for _, line := range summary.Lines {
		available, err := m.stock.AvailableStock(ctx, line.ProductID, line.Size)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to check stock")
		}
		if line.Quantity > available {
			return nil, &cart.OutOfStockError{
				ProductID: line.ProductID,
				Size:      line.Size,
				Available: available,
				InCart:    line.Quantity,
				Requested: line.Quantity,
			}
		}
	}

	intent, err := m.provider.CreateIntent(ctx, summary.Total, m.currency)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUNAVAILABLE {
			m.count(func(b *telemetry.BusinessMetrics) { b.GatewayUnavailable.Inc() })
		}
		return nil, err
	}
	m.count(func(b *telemetry.BusinessMetrics) { b.PaymentIntents.Inc() })

	outcome, err := m.provider.PresentPaymentUI(ctx, intent, gateway.Prefill{
		Name:    user.Name,
		Email:   user.Email,
		Contact: address.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	if outcome.Dismissed {
		m.count(func(b *telemetry.BusinessMetrics) { b.PaymentDismissed.Inc() })
		m.logger.Info("payment dismissed by user",
			slog.String("gateway_order_id", intent.GatewayOrderID))
		return nil, ErrPaymentDismissed
	}
	if !outcome.Completed() {
		return nil, domain.Internal(nil, op, "gateway returned no outcome")
	}

	order := m.buildOrder(summary, user, address)
	if _, err := m.settlement.VerifyAndRecord(ctx, *outcome.Callback, order); err != nil {
		return nil, err
	}
	return order, nil
}

// buildOrder snapshots the cart into an order record. The order id is
// generated here, once per attempt, and doubles as the ledger idempotency
// key.
func (m *Machine) buildOrder(summary cart.Summary, user *domain.User, address *domain.Address) *domain.Order {
	items := make([]domain.OrderLine, len(summary.Lines))
	for i, line := range summary.Lines {
		items[i] = domain.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.Subtotal(),
			Size:        line.Size,
			Image:       line.Image,
		}
	}
	return &domain.Order{
		OrderID:         NewOrderID(),
		UserID:          user.UserID,
		UserEmail:       user.Email,
		Status:          domain.OrderStatusPaid,
		TotalAmount:     summary.Total,
		Currency:        m.currency,
		ShippingAddress: *address,
		Items:           items,
		CreatedAt:       time.Now(),
	}
}

// NewOrderID generates a merchant-side order id, e.g. "ORD_1756723200000_3f9a2c1d".
func NewOrderID() string {
	return fmt.Sprintf("ORD_%d_%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// transition moves to next after validating the state graph.
func (m *Machine) transition(op string, next State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.canTransitionTo(next) {
		return m.state, domain.Conflict(op, fmt.Sprintf("illegal transition %q to %q", m.state, next))
	}
	m.state = next
	m.count(func(b *telemetry.BusinessMetrics) { b.CheckoutStep.WithLabelValues(string(next)).Inc() })
	return m.state, nil
}

func (m *Machine) count(fn func(*telemetry.BusinessMetrics)) {
	if m.metrics != nil {
		fn(m.metrics)
	}
}
