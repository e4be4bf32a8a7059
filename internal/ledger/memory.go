package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/falsenine/storefront/internal/domain"
)

// MemoryLedger is an in-memory OrderLedger for tests and local development.
type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

var _ domain.OrderLedger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		orders: make(map[string]domain.Order),
	}
}

// Save records the order. First write wins: saving an OrderID that already
// exists leaves the stored record untouched and returns its id.
func (l *MemoryLedger) Save(ctx context.Context, order *domain.Order) (string, error) {
	if err := ValidateOrder(order); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.orders[order.OrderID]; exists {
		return order.OrderID, nil
	}

	stored := *order
	stored.Items = append([]domain.OrderLine(nil), order.Items...)
	l.orders[order.OrderID] = stored
	return order.OrderID, nil
}

func (l *MemoryLedger) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, domain.NotFound("ledger.get", "order", orderID)
	}
	out := order
	out.Items = append([]domain.OrderLine(nil), order.Items...)
	return &out, nil
}

func (l *MemoryLedger) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Order
	for _, order := range l.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (l *MemoryLedger) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Order, 0, len(l.orders))
	for _, order := range l.orders {
		out = append(out, order)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
