// Package gateway integrates the external payment gateway: minting payment
// intents sized to the cart total, awaiting the gateway's hosted payment UI,
// and verifying settlement callbacks.
package gateway

import (
	"context"
	"time"
)

// Provider defines the interface for the payment gateway.
type Provider interface {
	// CreateIntent reserves amount (major units) with the gateway and
	// returns the gateway-side order used to drive its payment UI. Network
	// or service failure surfaces as an EUNAVAILABLE domain error; the
	// checkout attempt fails without recording anything.
	CreateIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error)

	// PresentPaymentUI hands control to the gateway's own UI and waits for
	// its verdict. Completion is driven by the gateway, not this process:
	// the two terminal outcomes are a settlement callback or an explicit
	// dismissal by the user. ctx cancellation abandons the wait.
	PresentPaymentUI(ctx context.Context, intent *PaymentIntent, prefill Prefill) (Outcome, error)
}

// PaymentIntent is a gateway-side reservation of an amount.
type PaymentIntent struct {
	// GatewayOrderID identifies the intent at the gateway (e.g. "order_...").
	GatewayOrderID string `json:"id"`

	// AmountMinorUnits is the reserved amount in the currency's minor unit
	// (paise for INR): major amount times 100. Minor units avoid
	// floating-point currency errors on the wire.
	AmountMinorUnits int64 `json:"amount"`

	// Currency is the ISO 4217 code, e.g. "INR".
	Currency string `json:"currency"`

	// Receipt is the merchant-side reference passed at creation.
	Receipt string `json:"receipt,omitempty"`

	// CreatedAt is when the intent was created.
	CreatedAt time.Time `json:"-"`
}

// Prefill carries contact details shown in the gateway's payment form.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// SettlementCallback is what the gateway posts back after the user completes
// payment in its UI. Signature is an HMAC-SHA256 over
// "gatewayOrderId|gatewayPaymentId" keyed by the server-held key secret.
type SettlementCallback struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

// Outcome is the tagged result of PresentPaymentUI: exactly one of Callback
// (payment completed) or Dismissed (user closed the UI without paying) is
// set. "No callback yet" is not an outcome; callers wait.
type Outcome struct {
	Callback  *SettlementCallback
	Dismissed bool
}

// Completed reports whether the outcome carries a settlement callback.
func (o Outcome) Completed() bool {
	return o.Callback != nil
}
