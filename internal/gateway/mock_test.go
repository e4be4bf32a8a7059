package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_CreateIntent(t *testing.T) {
	mock := NewMockProvider()
	ctx := context.Background()

	intent, err := mock.CreateIntent(ctx, 2500, "INR")
	require.NoError(t, err)

	assert.NotEmpty(t, intent.GatewayOrderID)
	assert.Equal(t, int64(250000), intent.AmountMinorUnits, "major units convert to paise")
	assert.Equal(t, "INR", intent.Currency)
	assert.Contains(t, intent.Receipt, "receipt_order")
	assert.Contains(t, mock.CallLog, "CreateIntent(2500, INR)")
}

func TestMockProvider_CreateIntent_InvalidAmount(t *testing.T) {
	mock := NewMockProvider()

	_, err := mock.CreateIntent(context.Background(), 0, "INR")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = mock.CreateIntent(context.Background(), -100, "INR")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMockProvider_PresentPaymentUI_Completed(t *testing.T) {
	mock := NewMockProvider()
	ctx := context.Background()

	intent, err := mock.CreateIntent(ctx, 1000, "INR")
	require.NoError(t, err)

	out, err := mock.PresentPaymentUI(ctx, intent, Prefill{Email: "a@b.test"})
	require.NoError(t, err)
	require.True(t, out.Completed())

	assert.Equal(t, intent.GatewayOrderID, out.Callback.GatewayOrderID)
	assert.True(t, mock.VerifySignature(*out.Callback), "mock signs its own callbacks")
}

func TestMockProvider_PresentPaymentUI_Dismissed(t *testing.T) {
	mock := NewMockProvider()
	mock.Dismiss = true
	ctx := context.Background()

	intent, err := mock.CreateIntent(ctx, 1000, "INR")
	require.NoError(t, err)

	out, err := mock.PresentPaymentUI(ctx, intent, Prefill{})
	require.NoError(t, err)
	assert.True(t, out.Dismissed)
	assert.Nil(t, out.Callback)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{KeyID: "rzp_test_abc", KeySecret: "secret"}
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsTestMode())

	live := Config{KeyID: "rzp_live_abc", KeySecret: "secret"}
	assert.False(t, live.IsTestMode())

	missing := Config{KeySecret: "secret"}
	assert.Error(t, missing.Validate())

	noSecret := Config{KeyID: "rzp_test_abc"}
	assert.Error(t, noSecret.Validate())
}
