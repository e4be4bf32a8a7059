package gateway

import "errors"

// Sentinel errors returned by gateway providers. Providers wrap these in
// domain errors where an HTTP-facing code is needed.
var (
	// ErrGatewayUnavailable indicates the gateway could not be reached or
	// answered with a service failure. The attempt is retryable.
	ErrGatewayUnavailable = errors.New("gateway: service unavailable")

	// ErrCircuitOpen indicates the circuit breaker is rejecting calls
	// after repeated gateway failures.
	ErrCircuitOpen = errors.New("gateway: circuit open")

	// ErrInvalidAmount indicates a non-positive amount was passed to
	// CreateIntent.
	ErrInvalidAmount = errors.New("gateway: amount must be positive")

	// ErrUnknownIntent indicates a callback or dismissal referenced a
	// gateway order nobody is waiting on.
	ErrUnknownIntent = errors.New("gateway: no pending payment for order")
)
