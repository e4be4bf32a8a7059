package domain

import "context"

// User is the authenticated identity attached to a checkout session.
type User struct {
	UserID string
	Email  string
	Name   string
}

// IdentityProvider authenticates a user and returns a stable identifier.
// Consumed, not reimplemented: signup/login endpoints live elsewhere.
type IdentityProvider interface {
	// Authenticate resolves credentials to a user. Returns an EUNAUTHORIZED
	// domain error when the credentials are not accepted.
	Authenticate(ctx context.Context, email, password string) (*User, error)
}
