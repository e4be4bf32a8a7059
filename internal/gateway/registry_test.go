package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackRegistry_Deliver(t *testing.T) {
	reg := NewCallbackRegistry()

	type awaited struct {
		out Outcome
		err error
	}
	done := make(chan awaited, 1)
	ready := make(chan struct{})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		close(ready)
		out, err := reg.Await(ctx, "order_abc")
		done <- awaited{out, err}
	}()

	<-ready
	// Let Await register its waiter before delivering.
	var err error
	for i := 0; i < 100; i++ {
		err = reg.Deliver(SettlementCallback{
			GatewayOrderID:   "order_abc",
			GatewayPaymentID: "pay_xyz",
			Signature:        "sig",
		})
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)

	got := <-done
	require.NoError(t, got.err)
	require.True(t, got.out.Completed())
	assert.Equal(t, "pay_xyz", got.out.Callback.GatewayPaymentID)
	assert.False(t, got.out.Dismissed)
}

func TestCallbackRegistry_Dismiss(t *testing.T) {
	reg := NewCallbackRegistry()

	done := make(chan Outcome, 1)
	go func() {
		out, _ := reg.Await(context.Background(), "order_abc")
		done <- out
	}()

	var err error
	for i := 0; i < 100; i++ {
		if err = reg.Dismiss("order_abc"); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)

	out := <-done
	assert.True(t, out.Dismissed)
	assert.False(t, out.Completed())
}

func TestCallbackRegistry_UnknownIntent(t *testing.T) {
	reg := NewCallbackRegistry()

	err := reg.Deliver(SettlementCallback{GatewayOrderID: "order_nobody"})
	assert.ErrorIs(t, err, ErrUnknownIntent)

	err = reg.Dismiss("order_nobody")
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestCallbackRegistry_AwaitCancelled(t *testing.T) {
	reg := NewCallbackRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Await(ctx, "order_abc")
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned waiter must not linger.
	assert.ErrorIs(t, reg.Dismiss("order_abc"), ErrUnknownIntent)
}
