package gateway

import (
	"context"
	"sync"
)

// CallbackRegistry routes settlement callbacks and dismissals from the HTTP
// surface to the checkout attempt waiting in PresentPaymentUI, keyed by
// gateway order id. One waiter per intent; a second Await for the same id
// replaces the first.
type CallbackRegistry struct {
	mu      sync.Mutex
	waiters map[string]chan Outcome
}

func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{
		waiters: make(map[string]chan Outcome),
	}
}

// Await blocks until an outcome is delivered for gatewayOrderID or ctx is
// done. The waiter is removed in either case.
func (r *CallbackRegistry) Await(ctx context.Context, gatewayOrderID string) (Outcome, error) {
	ch := make(chan Outcome, 1)

	r.mu.Lock()
	r.waiters[gatewayOrderID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.waiters[gatewayOrderID] == ch {
			delete(r.waiters, gatewayOrderID)
		}
		r.mu.Unlock()
	}()

	select {
	case out := <-ch:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Deliver completes the pending payment for cb.GatewayOrderID with a
// settlement callback. Returns ErrUnknownIntent when nobody is waiting.
func (r *CallbackRegistry) Deliver(cb SettlementCallback) error {
	return r.resolve(cb.GatewayOrderID, Outcome{Callback: &cb})
}

// Dismiss completes the pending payment with a user dismissal.
func (r *CallbackRegistry) Dismiss(gatewayOrderID string) error {
	return r.resolve(gatewayOrderID, Outcome{Dismissed: true})
}

func (r *CallbackRegistry) resolve(gatewayOrderID string, out Outcome) error {
	r.mu.Lock()
	ch, ok := r.waiters[gatewayOrderID]
	if ok {
		delete(r.waiters, gatewayOrderID)
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownIntent
	}
	ch <- out
	return nil
}
