package domain

import "context"

// Address is the shipping address attached to a checkout. Exactly one
// address record is retrievable per user in this system.
type Address struct {
	UserID       string `json:"userId,omitempty"`
	FullName     string `json:"fullName" validate:"required"`
	PhoneNumber  string `json:"phoneNumber" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"pinCode" validate:"required"`
	Country      string `json:"country" validate:"required"`
	IsDefault    bool   `json:"isDefault,omitempty"`
}

// AddressResolver stores and retrieves the single shipping address per user.
// The CRUD endpoints behind it are an external collaborator; checkout only
// needs this read/write contract.
type AddressResolver interface {
	// GetAddress returns the user's saved address, or an ENOTFOUND domain
	// error when none has been saved yet.
	GetAddress(ctx context.Context, userID string) (*Address, error)

	// SaveAddress creates or replaces the user's address.
	SaveAddress(ctx context.Context, addr *Address) error
}
