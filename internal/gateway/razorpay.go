package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sony/gobreaker/v2"

	"github.com/falsenine/storefront/internal/domain"
)

// RazorpayProvider implements Provider against the Razorpay Orders API.
// Calls run behind a circuit breaker; once the gateway fails repeatedly the
// breaker rejects immediately instead of piling up blocked checkouts.
type RazorpayProvider struct {
	client   *razorpay.Client
	config   Config
	breaker  *gobreaker.CircuitBreaker[*PaymentIntent]
	registry *CallbackRegistry
	logger   *slog.Logger
}

// NewRazorpayProvider creates a Razorpay-backed provider. registry receives
// settlement callbacks and dismissals from the HTTP surface.
func NewRazorpayProvider(config Config, registry *CallbackRegistry, logger *slog.Logger) (*RazorpayProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker[*PaymentIntent](gobreaker.Settings{
		Name:    "razorpay",
		Timeout: config.breakerCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.breakerThreshold()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment gateway circuit state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &RazorpayProvider{
		client:   razorpay.NewClient(config.KeyID, config.KeySecret),
		config:   config,
		breaker:  breaker,
		registry: registry,
		logger:   logger,
	}, nil
}

// CreateIntent creates a Razorpay order for amount major units of currency.
// The gateway wire format wants minor units, so the amount is multiplied by
// 100 here and nowhere else.
func (p *RazorpayProvider) CreateIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	const op = "razorpay.create_intent"

	if amount <= 0 {
		return nil, domain.WrapError(ErrInvalidAmount, domain.EINVALID, op, "order amount must be positive")
	}
	if currency == "" {
		currency = "INR"
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	receipt := fmt.Sprintf("receipt_order%d", time.Now().UnixMilli())
	minorUnits := amount * 100

	type result struct {
		intent *PaymentIntent
		err    error
	}
	done := make(chan result, 1)

	// The SDK does not take a context; run the call in a goroutine so the
	// deadline still bounds the caller's wait.
	go func() {
		intent, err := p.breaker.Execute(func() (*PaymentIntent, error) {
			return p.createOrder(minorUnits, currency, receipt)
		})
		done <- result{intent, err}
	}()

	select {
	case <-ctx.Done():
		p.logger.Error("payment gateway call timed out",
			slog.Int64("amount", amount),
			slog.String("currency", currency))
		return nil, domain.Unavailable(ctx.Err(), op, "payment gateway timed out")
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, gobreaker.ErrOpenState) || errors.Is(r.err, gobreaker.ErrTooManyRequests) {
				return nil, domain.Unavailable(ErrCircuitOpen, op, "payment gateway temporarily unavailable")
			}
			p.logger.Error("payment gateway order creation failed",
				slog.Int64("amount", amount),
				slog.String("currency", currency),
				slog.String("error", r.err.Error()))
			return nil, domain.Unavailable(r.err, op, "payment gateway unavailable")
		}
		p.logger.Info("payment intent created",
			slog.String("gateway_order_id", r.intent.GatewayOrderID),
			slog.Int64("amount_minor", r.intent.AmountMinorUnits),
			slog.String("currency", r.intent.Currency))
		return r.intent, nil
	}
}

func (p *RazorpayProvider) createOrder(minorUnits int64, currency, receipt string) (*PaymentIntent, error) {
	data := map[string]interface{}{
		"amount":   minorUnits,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrGatewayUnavailable)
	}

	return &PaymentIntent{
		GatewayOrderID:   id,
		AmountMinorUnits: minorUnits,
		Currency:         currency,
		Receipt:          receipt,
		CreatedAt:        time.Now(),
	}, nil
}

// PresentPaymentUI waits for the gateway UI to resolve the intent, via the
// callback registry fed by the HTTP surface.
func (p *RazorpayProvider) PresentPaymentUI(ctx context.Context, intent *PaymentIntent, prefill Prefill) (Outcome, error) {
	out, err := p.registry.Await(ctx, intent.GatewayOrderID)
	if err != nil {
		return Outcome{}, domain.WrapError(err, domain.EINTERNAL, "razorpay.present_payment_ui", "payment wait abandoned")
	}
	return out, nil
}

// VerifySignature checks a settlement callback against this provider's key
// secret.
func (p *RazorpayProvider) VerifySignature(cb SettlementCallback) bool {
	return VerifySignature(cb, p.config.KeySecret)
}
