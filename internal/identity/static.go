// Package identity provides the authentication collaborator for checkout.
// The real user directory is an external system; this static provider backs
// local runs and tests.
package identity

import (
	"context"
	"sync"

	"github.com/falsenine/storefront/internal/domain"
)

type account struct {
	user     domain.User
	password string
}

// StaticProvider authenticates against a fixed in-memory set of accounts.
type StaticProvider struct {
	mu       sync.RWMutex
	accounts map[string]account
}

var _ domain.IdentityProvider = (*StaticProvider)(nil)

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		accounts: make(map[string]account),
	}
}

// Register adds or replaces an account keyed by email.
func (p *StaticProvider) Register(user domain.User, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[user.Email] = account{user: user, password: password}
}

// Authenticate returns the user for the credentials, or an EUNAUTHORIZED
// domain error. Unknown email and wrong password are indistinguishable to
// the caller.
func (p *StaticProvider) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	const op = "identity.authenticate"

	p.mu.RLock()
	acct, ok := p.accounts[email]
	p.mu.RUnlock()

	if !ok || acct.password != password {
		return nil, domain.Unauthorized(op, "invalid email or password")
	}
	user := acct.user
	return &user, nil
}
