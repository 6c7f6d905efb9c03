package issuance

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Action names a supply-changing capability.
type Action string

const (
	// ActionMint permits creating supply.
	ActionMint Action = "mint"
	// ActionBurn permits destroying supply.
	ActionBurn Action = "burn"
)

// Authorizer decides whether a caller may perform a supply-changing action.
// Identity and credential management stay outside the ledger core; this is
// the capability surface the service calls into.
type Authorizer interface {
	Authorize(ctx context.Context, credential string, action Action) error
}

// KeyAuthorizer grants every action to callers presenting the administrator
// key. Only the bcrypt hash of the key is held in memory.
type KeyAuthorizer struct {
	hash []byte
}

// NewKeyAuthorizer builds an authorizer from a bcrypt hash of the admin key.
func NewKeyAuthorizer(hash string) (*KeyAuthorizer, error) {
	if hash == "" {
		return nil, fmt.Errorf("admin key hash is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin key hash: %w", err)
	}
	return &KeyAuthorizer{hash: []byte(hash)}, nil
}

// Authorize compares the presented credential against the stored hash.
func (a *KeyAuthorizer) Authorize(_ context.Context, credential string, _ Action) error {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential)); err != nil {
		return ledger.ErrUnauthorized
	}
	return nil
}

// AllowAll authorizes every caller. For tests and database-less dev runs.
type AllowAll struct{}

// Authorize always succeeds.
func (AllowAll) Authorize(context.Context, string, Action) error { return nil }
