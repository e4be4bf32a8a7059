package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falsenine/storefront/internal/domain"
)

func validOrder(orderID string) *domain.Order {
	return &domain.Order{
		OrderID:     orderID,
		UserID:      "user-1",
		UserEmail:   "buyer@example.test",
		Status:      domain.OrderStatusPaid,
		TotalAmount: 3000,
		Currency:    "INR",
		ShippingAddress: domain.Address{
			FullName:     "A Buyer",
			PhoneNumber:  "9876543210",
			AddressLine1: "12 Fort Road",
			City:         "Kochi",
			State:        "Kerala",
			PostalCode:   "682001",
			Country:      "India",
		},
		Items: []domain.OrderLine{
			{ProductID: "frontline", ProductName: "Frontline Jersey", Quantity: 3, UnitPrice: 1000, LineTotal: 3000, Size: "M"},
		},
		GatewayOrderID:   "order_gw1",
		GatewayPaymentID: "pay_gw1",
		CreatedAt:        time.Now(),
	}
}

func TestValidateOrder(t *testing.T) {
	t.Run("valid order passes", func(t *testing.T) {
		assert.NoError(t, ValidateOrder(validOrder("ORD_1")))
	})

	t.Run("nil order rejected", func(t *testing.T) {
		err := ValidateOrder(nil)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("missing user rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.UserID = ""
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("bad email rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.UserEmail = "not-an-email"
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("empty items rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.Items = nil
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.TotalAmount = -1
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("line total mismatch rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.Items[0].LineTotal = 2999
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("order total not matching line sum rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.TotalAmount = 2500
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		order := validOrder("ORD_1")
		order.Status = "SHIPPED"
		err := ValidateOrder(order)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}

func TestMemoryLedger_SaveAndGet(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()

	id, err := store.Save(ctx, validOrder("ORD_100"))
	require.NoError(t, err)
	assert.Equal(t, "ORD_100", id)

	got, err := store.GetByID(ctx, "ORD_100")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, int64(3000), got.TotalAmount)
}

func TestMemoryLedger_SaveIsIdempotent(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()

	first := validOrder("ORD_100")
	_, err := store.Save(ctx, first)
	require.NoError(t, err)

	// A retry with the same order id must not create a second record or
	// overwrite the first.
	retry := validOrder("ORD_100")
	retry.TotalAmount = 1000
	retry.Items = []domain.OrderLine{
		{ProductID: "other", ProductName: "Other", Quantity: 1, UnitPrice: 1000, LineTotal: 1000},
	}
	id, err := store.Save(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, "ORD_100", id)

	got, err := store.GetByID(ctx, "ORD_100")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.TotalAmount, "first write wins")
	assert.Equal(t, "frontline", got.Items[0].ProductID)

	recent, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestMemoryLedger_NothingPartialOnRejection(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()

	bad := validOrder("ORD_BAD")
	bad.Items = nil
	_, err := store.Save(ctx, bad)
	require.Error(t, err)

	_, err = store.GetByID(ctx, "ORD_BAD")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestMemoryLedger_GetByID_NotFound(t *testing.T) {
	store := NewMemoryLedger()

	_, err := store.GetByID(context.Background(), "ORD_missing")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestMemoryLedger_ListByUser_NewestFirst(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"ORD_a", "ORD_b", "ORD_c"} {
		order := validOrder(id)
		order.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := store.Save(ctx, order)
		require.NoError(t, err)
	}
	other := validOrder("ORD_other")
	other.UserID = "user-2"
	_, err := store.Save(ctx, other)
	require.NoError(t, err)

	orders, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD_c", orders[0].OrderID)
	assert.Equal(t, "ORD_b", orders[1].OrderID)
	assert.Equal(t, "ORD_a", orders[2].OrderID)
}

func TestMemoryLedger_ListRecent_Limit(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		order := validOrder("ORD_" + string(rune('a'+i)))
		order.CreatedAt = base.Add(time.Duration(i) * time.Second)
		_, err := store.Save(ctx, order)
		require.NoError(t, err)
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "ORD_e", recent[0].OrderID)
	assert.Equal(t, "ORD_d", recent[1].OrderID)
}

func TestMemoryLedger_StoredOrderIsImmutable(t *testing.T) {
	store := NewMemoryLedger()
	ctx := context.Background()

	order := validOrder("ORD_100")
	_, err := store.Save(ctx, order)
	require.NoError(t, err)

	// Mutating the caller's copy or a returned copy must not leak into the
	// ledger.
	order.Items[0].ProductName = "changed"
	got, err := store.GetByID(ctx, "ORD_100")
	require.NoError(t, err)
	got.Items[0].ProductName = "also changed"

	again, err := store.GetByID(ctx, "ORD_100")
	require.NoError(t, err)
	assert.Equal(t, "Frontline Jersey", again.Items[0].ProductName)
}
