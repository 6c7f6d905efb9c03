package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// ErrNotRequestor indicates the caller did not assert control of the account
// whose funds or allowance the operation would spend.
var ErrNotRequestor = errors.New("caller does not control source account")

// Service applies transfer and approval operations on behalf of callers,
// enforcing that a caller only moves value it controls. A request without an
// asserted caller account is rejected outright. The ledger backend enforces
// the arithmetic invariants.
type Service struct {
	ledger ledger.Ledger
}

// NewService constructs a transfer service.
func NewService(ledgerBackend ledger.Ledger) *Service {
	return &Service{ledger: ledgerBackend}
}

// TransferInput captures the data needed to move value between accounts.
type TransferInput struct {
	TokenID   ledger.TokenID
	From      ledger.AccountID
	To        ledger.AccountID
	Amount    int64
	Requestor ledger.AccountID
}

// TransferResult describes the ledger outcome of a transfer.
type TransferResult struct {
	TokenID     ledger.TokenID
	FromBalance int64
	ToBalance   int64
	CompletedAt time.Time
}

// Transfer moves value from the requestor's account to another account.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Requestor == "" || input.Requestor != input.From {
		return TransferResult{}, ErrNotRequestor
	}

	res, err := s.ledger.Transfer(ctx, input.TokenID, input.From, input.To, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{
		TokenID:     res.Token,
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// ApproveInput captures the data needed to set a spender allowance.
type ApproveInput struct {
	TokenID   ledger.TokenID
	Owner     ledger.AccountID
	Spender   ledger.AccountID
	Amount    int64
	Requestor ledger.AccountID
}

// Approve sets the spender allowance on the owner's balance. The new value
// replaces any prior allowance outright.
func (s *Service) Approve(ctx context.Context, input ApproveInput) error {
	if input.Requestor == "" || input.Requestor != input.Owner {
		return ErrNotRequestor
	}
	return s.ledger.Approve(ctx, input.TokenID, input.Owner, input.Spender, input.Amount)
}

// DelegatedInput captures the data needed to spend an approved allowance.
type DelegatedInput struct {
	TokenID   ledger.TokenID
	Spender   ledger.AccountID
	Owner     ledger.AccountID
	To        ledger.AccountID
	Amount    int64
	Requestor ledger.AccountID
}

// TransferFrom moves value out of the owner's account against the
// requestor's allowance.
func (s *Service) TransferFrom(ctx context.Context, input DelegatedInput) (TransferResult, error) {
	if input.Requestor == "" || input.Requestor != input.Spender {
		return TransferResult{}, ErrNotRequestor
	}

	res, err := s.ledger.TransferFrom(ctx, input.TokenID, input.Spender, input.Owner, input.To, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{
		TokenID:     res.Token,
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		CompletedAt: time.Now().UTC(),
	}, nil
}
