package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock payment gateway for testing.
// Simulates successful payment flows without calling the Razorpay API.
type MockProvider struct {
	// KeySecret signs the callbacks the mock fabricates. Defaults to
	// "mock_secret" when empty.
	KeySecret string

	// CreateIntentFunc allows customizing intent creation behavior
	CreateIntentFunc func(ctx context.Context, amount int64, currency string) (*PaymentIntent, error)

	// PresentPaymentUIFunc allows customizing the payment UI outcome
	PresentPaymentUIFunc func(ctx context.Context, intent *PaymentIntent, prefill Prefill) (Outcome, error)

	// Dismiss makes the default PresentPaymentUI report a user dismissal
	// instead of a completed payment
	Dismiss bool

	// Intents stores created payment intents for retrieval
	Intents map[string]*PaymentIntent

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock payment gateway.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Intents: make(map[string]*PaymentIntent),
		CallLog: []string{},
	}
}

func (m *MockProvider) secret() string {
	if m.KeySecret != "" {
		return m.KeySecret
	}
	return "mock_secret"
}

// CreateIntent creates a mock payment intent.
func (m *MockProvider) CreateIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateIntent(%d, %s)", amount, currency))

	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amount, currency)
	}

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		currency = "INR"
	}

	intent := &PaymentIntent{
		GatewayOrderID:   "order_" + uuid.New().String(),
		AmountMinorUnits: amount * 100,
		Currency:         currency,
		Receipt:          fmt.Sprintf("receipt_order%d", time.Now().UnixMilli()),
		CreatedAt:        time.Now(),
	}
	m.Intents[intent.GatewayOrderID] = intent
	return intent, nil
}

// PresentPaymentUI resolves immediately with a signed callback, or a
// dismissal when Dismiss is set.
func (m *MockProvider) PresentPaymentUI(ctx context.Context, intent *PaymentIntent, prefill Prefill) (Outcome, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("PresentPaymentUI(%s)", intent.GatewayOrderID))

	if m.PresentPaymentUIFunc != nil {
		return m.PresentPaymentUIFunc(ctx, intent, prefill)
	}

	if m.Dismiss {
		return Outcome{Dismissed: true}, nil
	}

	paymentID := "pay_" + uuid.New().String()
	return Outcome{
		Callback: &SettlementCallback{
			GatewayOrderID:   intent.GatewayOrderID,
			GatewayPaymentID: paymentID,
			Signature:        SignCallback(intent.GatewayOrderID, paymentID, m.secret()),
		},
	}, nil
}

// VerifySignature checks a callback against the mock's key secret.
func (m *MockProvider) VerifySignature(cb SettlementCallback) bool {
	return VerifySignature(cb, m.secret())
}
