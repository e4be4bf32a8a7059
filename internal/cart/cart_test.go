package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/telemetry"
)

var (
	metricsOnce sync.Once
	metrics     *telemetry.BusinessMetrics
)

func cartMetrics() *telemetry.BusinessMetrics {
	metricsOnce.Do(func() {
		metrics = telemetry.NewBusinessMetrics("cart_test")
	})
	return metrics
}

// stubStock implements domain.StockReader with a fixed snapshot.
type stubStock struct {
	levels map[string]int64 // "productID/size" -> available
	err    error
}

func (s *stubStock) AvailableStock(ctx context.Context, productID, size string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.levels[productID+"/"+size], nil
}

func frontlineJersey() domain.Product {
	return domain.Product{
		ID:    "frontline",
		Name:  "Frontline Jersey",
		Price: 1000,
		Sizes: []string{"S", "M", "L"},
	}
}

func TestAdd_MergesQuantityOnSameKey(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 5}})
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 2))
	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 1))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.Equal(t, int64(3000), store.Total())
}

func TestAdd_RejectsWhenStockExceeded(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 2}})
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 2))

	err := store.Add(ctx, frontlineJersey(), "M", 1)
	var oos *OutOfStockError
	require.True(t, errors.As(err, &oos), "expected OutOfStockError, got %v", err)
	assert.Equal(t, int64(2), oos.Available)
	assert.Equal(t, int64(2), oos.InCart)

	// Rejected mutation must leave the cart unchanged.
	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
}

func TestAdd_InvalidInput(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 5}})
	ctx := context.Background()

	assert.ErrorIs(t, store.Add(ctx, frontlineJersey(), "M", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, store.Add(ctx, frontlineJersey(), "XXL", 1), ErrInvalidSize)
}

func TestSetQuantity(t *testing.T) {
	stock := &stubStock{levels: map[string]int64{"frontline/M": 3}}
	store := NewStore(stock)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 1))

	t.Run("updates within stock", func(t *testing.T) {
		require.NoError(t, store.SetQuantity(ctx, "frontline", "M", 3))
		assert.Equal(t, int64(3000), store.Total())
	})

	t.Run("rejects beyond stock", func(t *testing.T) {
		err := store.SetQuantity(ctx, "frontline", "M", 4)
		var oos *OutOfStockError
		require.True(t, errors.As(err, &oos))
		assert.Equal(t, int64(3), oos.Available)
	})

	t.Run("below one removes the line", func(t *testing.T) {
		require.NoError(t, store.SetQuantity(ctx, "frontline", "M", 0))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("unknown line", func(t *testing.T) {
		assert.ErrorIs(t, store.SetQuantity(ctx, "ghost", "M", 1), ErrLineNotFound)
	})
}

func TestTotal_RecomputedAfterAnySequence(t *testing.T) {
	stock := &stubStock{levels: map[string]int64{
		"frontline/M": 10,
		"frontline/L": 10,
		"keeper/M":    10,
	}}
	store := NewStore(stock)
	ctx := context.Background()

	keeper := domain.Product{ID: "keeper", Name: "Keeper Kit", Price: 1450, Sizes: []string{"M"}}

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 2))
	require.NoError(t, store.Add(ctx, frontlineJersey(), "L", 1))
	require.NoError(t, store.Add(ctx, keeper, "M", 3))
	require.NoError(t, store.SetQuantity(ctx, "frontline", "M", 1))
	require.NoError(t, store.Remove("frontline", "L"))

	var want int64
	for _, line := range store.Lines() {
		want += line.UnitPrice * line.Quantity
	}
	assert.Equal(t, want, store.Total())
	assert.Equal(t, int64(1000+3*1450), store.Total())
}

func TestClear(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 5}})
	require.NoError(t, store.Add(context.Background(), frontlineJersey(), "M", 2))

	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(0), store.Total())
}

func TestObservers_NotifiedOnEveryMutation(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 5}})
	ctx := context.Background()

	var snapshots []Summary
	store.Subscribe(func(s Summary) {
		snapshots = append(snapshots, s)
	})

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 2))
	require.NoError(t, store.SetQuantity(ctx, "frontline", "M", 1))
	require.NoError(t, store.Remove("frontline", "M"))

	require.Len(t, snapshots, 3)
	assert.Equal(t, int64(2000), snapshots[0].Total)
	assert.Equal(t, int64(1000), snapshots[1].Total)
	assert.Equal(t, int64(0), snapshots[2].Total)
}

func TestObservers_NotNotifiedOnRejectedMutation(t *testing.T) {
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 1}})
	ctx := context.Background()

	calls := 0
	store.Subscribe(func(Summary) { calls++ })

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 1))
	require.Error(t, store.Add(ctx, frontlineJersey(), "M", 1))

	assert.Equal(t, 1, calls)
}

func TestAdd_StockReadFailure(t *testing.T) {
	store := NewStore(&stubStock{err: errors.New("catalog unreachable")})

	err := store.Add(context.Background(), frontlineJersey(), "M", 1)
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestWithMetrics_CountsAddsAndRejections(t *testing.T) {
	metrics := cartMetrics()
	store := NewStore(&stubStock{levels: map[string]int64{"frontline/M": 2}}).WithMetrics(metrics)
	ctx := context.Background()

	adds := testutil.ToFloat64(metrics.CartAdds)
	rejections := testutil.ToFloat64(metrics.CartOutOfStock)

	require.NoError(t, store.Add(ctx, frontlineJersey(), "M", 2))
	require.Error(t, store.Add(ctx, frontlineJersey(), "M", 1))
	require.Error(t, store.SetQuantity(ctx, "frontline", "M", 5))

	assert.Equal(t, adds+1, testutil.ToFloat64(metrics.CartAdds))
	assert.Equal(t, rejections+2, testutil.ToFloat64(metrics.CartOutOfStock))
}
