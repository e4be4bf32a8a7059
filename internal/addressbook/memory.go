// Package addressbook stores one shipping address per user. Address CRUD
// proper lives in an external profile service; checkout only needs this
// read/write contract.
package addressbook

import (
	"context"
	"regexp"
	"sync"

	"github.com/falsenine/storefront/internal/domain"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	pinPattern   = regexp.MustCompile(`^[0-9]{6}$`)
)

// MemoryResolver is an in-memory AddressResolver.
type MemoryResolver struct {
	mu        sync.RWMutex
	addresses map[string]domain.Address
}

var _ domain.AddressResolver = (*MemoryResolver)(nil)

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		addresses: make(map[string]domain.Address),
	}
}

func (r *MemoryResolver) GetAddress(ctx context.Context, userID string) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.addresses[userID]
	if !ok {
		return nil, domain.NotFound("addressbook.get", "address for user", userID)
	}
	out := addr
	return &out, nil
}

// SaveAddress validates and stores the address, replacing any existing one
// for the user.
func (r *MemoryResolver) SaveAddress(ctx context.Context, addr *domain.Address) error {
	const op = "addressbook.save"

	if addr == nil || addr.UserID == "" {
		return domain.Invalid(op, "address user id is required")
	}
	if addr.FullName == "" || addr.AddressLine1 == "" || addr.City == "" ||
		addr.State == "" || addr.Country == "" {
		return domain.Invalid(op, "all address fields are required")
	}
	if !phonePattern.MatchString(addr.PhoneNumber) {
		return domain.Invalid(op, "phone number must be 10 digits")
	}
	if !pinPattern.MatchString(addr.PostalCode) {
		return domain.Invalid(op, "pin code must be 6 digits")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[addr.UserID] = *addr
	return nil
}
