package ledger

import (
	"context"
	"errors"
)

var (
	// ErrUnknownToken occurs when an operation references a token identifier
	// that was never initialized.
	ErrUnknownToken = errors.New("unknown token")

	// ErrTokenExists occurs when token initialization requests an identifier
	// that is already taken.
	ErrTokenExists = errors.New("token already exists")

	// ErrInsufficientBalance occurs when the source account lacks available
	// balance to cover a requested movement.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance occurs when a delegated transfer exceeds what
	// the owner approved for the spender.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInvalidAmount occurs when a negative amount is supplied or an
	// operation would overflow a supply counter.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnauthorized occurs when the caller lacks the capability required
	// for a supply-changing operation.
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenID names one token universe. Identifiers are assigned sequentially
// starting at 1 when the caller does not request one, and are never reused.
type TokenID uint32

// AccountID identifies a ledger participant. The ledger treats it as an
// opaque comparable key; identity verification belongs to the caller.
type AccountID string

// TransferResult captures the outcome of a balance movement.
type TransferResult struct {
	Token       TokenID
	FromBalance int64
	ToBalance   int64
}

// Ledger is the single source of truth for token supplies, balances and
// spender allowances. Every mutating operation is all-or-nothing: on any
// precondition failure the state is left exactly as it was before the call.
// Implementations report each successful mutation to their event sink
// exactly once, after the mutation is committed, and never on a failed call.
//
// Approve sets the allowance to the given value outright. Additive approval
// is deliberately not offered: a pending spend against an older allowance
// combined with a top-up lets the spender move more than either value alone.
type Ledger interface {
	InitToken(ctx context.Context, requested *TokenID, owner AccountID, initialSupply int64) (TokenID, error)
	BalanceOf(ctx context.Context, id TokenID, account AccountID) (int64, error)
	TotalSupply(ctx context.Context, id TokenID) (int64, error)
	Transfer(ctx context.Context, id TokenID, from, to AccountID, amount int64) (TransferResult, error)
	Approve(ctx context.Context, id TokenID, owner, spender AccountID, amount int64) error
	Allowance(ctx context.Context, id TokenID, owner, spender AccountID) (int64, error)
	TransferFrom(ctx context.Context, id TokenID, spender, owner, to AccountID, amount int64) (TransferResult, error)
	Mint(ctx context.Context, id TokenID, to AccountID, amount int64) (int64, error)
	Burn(ctx context.Context, id TokenID, from AccountID, amount int64) (int64, error)
}
