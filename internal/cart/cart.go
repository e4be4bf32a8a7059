package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/telemetry"
)

var (
	ErrInvalidQuantity = &domain.Error{Code: domain.EINVALID, Message: "Quantity must be greater than 0"}
	ErrLineNotFound    = &domain.Error{Code: domain.ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidSize     = &domain.Error{Code: domain.EINVALID, Message: "Size not offered for this product"}
)

// OutOfStockError rejects a cart mutation that would exceed available stock.
// It carries the current availability and the quantity already held so the
// caller can present an accurate message.
type OutOfStockError struct {
	ProductID string
	Size      string
	Available int64
	InCart    int64
	Requested int64
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("only %d available in stock for %s (size %s), %d already in cart",
		e.Available, e.ProductID, e.Size, e.InCart)
}

// Line is one cart entry, keyed by (product, size). UnitPrice is fixed when
// the line is first added and not re-fetched from the catalog.
type Line struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Size        string `json:"size"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Image       string `json:"image,omitempty"`
}

// Subtotal returns the line's contribution to the cart total.
func (l Line) Subtotal() int64 {
	return l.UnitPrice * l.Quantity
}

// Summary is a consistent snapshot of the cart handed to observers.
type Summary struct {
	Lines     []Line
	Total     int64
	ItemCount int64
}

// Observer receives a cart snapshot after every successful mutation.
type Observer func(Summary)

type lineKey struct {
	productID string
	size      string
}

// Store holds the line items for one checkout session and validates every
// mutation against a live stock snapshot. Mutations either succeed fully or
// leave the cart unchanged; quantities are never silently clamped.
type Store struct {
	mu        sync.Mutex
	stock     domain.StockReader
	lines     map[lineKey]Line
	observers []Observer
	metrics   *telemetry.BusinessMetrics
}

// NewStore creates an empty cart backed by the given stock snapshot source.
func NewStore(stock domain.StockReader) *Store {
	return &Store{
		stock: stock,
		lines: make(map[lineKey]Line),
	}
}

// WithMetrics attaches business metrics counting adds and out-of-stock
// rejections. Returns the store for chaining.
func (s *Store) WithMetrics(m *telemetry.BusinessMetrics) *Store {
	s.metrics = m
	return s
}

// Subscribe registers an observer notified after every successful mutation.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Add puts qty units of (product, size) into the cart, merging onto an
// existing line for the same key. The merged quantity is re-validated
// against available stock.
func (s *Store) Add(ctx context.Context, product domain.Product, size string, qty int64) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if len(product.Sizes) > 0 && !containsSize(product.Sizes, size) {
		return ErrInvalidSize
	}

	available, err := s.stock.AvailableStock(ctx, product.ID, size)
	if err != nil {
		return fmt.Errorf("failed to read stock for %s/%s: %w", product.ID, size, err)
	}

	s.mu.Lock()
	key := lineKey{productID: product.ID, size: size}
	existing := s.lines[key]

	if existing.Quantity+qty > available {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.CartOutOfStock.Inc()
		}
		return &OutOfStockError{
			ProductID: product.ID,
			Size:      size,
			Available: available,
			InCart:    existing.Quantity,
			Requested: qty,
		}
	}

	if existing.Quantity > 0 {
		existing.Quantity += qty
		s.lines[key] = existing
	} else {
		s.lines[key] = Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        size,
			Quantity:    qty,
			UnitPrice:   product.Price,
			Image:       product.Image,
		}
	}
	summary := s.summaryLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CartAdds.Inc()
	}
	s.notify(summary)
	return nil
}

// SetQuantity replaces the quantity of an existing line. A quantity below 1
// removes the line. The new quantity is validated against available stock.
func (s *Store) SetQuantity(ctx context.Context, productID, size string, qty int64) error {
	if qty < 1 {
		return s.Remove(productID, size)
	}

	available, err := s.stock.AvailableStock(ctx, productID, size)
	if err != nil {
		return fmt.Errorf("failed to read stock for %s/%s: %w", productID, size, err)
	}

	s.mu.Lock()
	key := lineKey{productID: productID, size: size}
	line, ok := s.lines[key]
	if !ok {
		s.mu.Unlock()
		return ErrLineNotFound
	}

	if qty > available {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.CartOutOfStock.Inc()
		}
		return &OutOfStockError{
			ProductID: productID,
			Size:      size,
			Available: available,
			InCart:    line.Quantity,
			Requested: qty,
		}
	}

	line.Quantity = qty
	s.lines[key] = line
	summary := s.summaryLocked()
	s.mu.Unlock()

	s.notify(summary)
	return nil
}

// Remove deletes the line for (productID, size). Removing an absent line is
// a no-op.
func (s *Store) Remove(productID, size string) error {
	s.mu.Lock()
	key := lineKey{productID: productID, size: size}
	if _, ok := s.lines[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.lines, key)
	summary := s.summaryLocked()
	s.mu.Unlock()

	s.notify(summary)
	return nil
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = make(map[lineKey]Line)
	summary := s.summaryLocked()
	s.mu.Unlock()

	s.notify(summary)
}

// Total recomputes the cart total from its lines on every call.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, line := range s.lines {
		total += line.Subtotal()
	}
	return total
}

// Lines returns the cart's lines in a stable order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesLocked()
}

// Len returns the number of distinct lines in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Summary returns a consistent snapshot of lines, total, and item count.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Store) linesLocked() []Line {
	lines := make([]Line, 0, len(s.lines))
	for _, line := range s.lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].Size < lines[j].Size
	})
	return lines
}

func (s *Store) summaryLocked() Summary {
	lines := s.linesLocked()
	var total, count int64
	for _, line := range lines {
		total += line.Subtotal()
		count += line.Quantity
	}
	return Summary{Lines: lines, Total: total, ItemCount: count}
}

// notify runs outside the store lock so observers may call back into the
// store.
func (s *Store) notify(summary Summary) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(summary)
	}
}

func containsSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}
