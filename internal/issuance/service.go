package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Service applies supply-changing operations after checking the caller's
// capability. The ledger is never touched when authorization fails.
type Service struct {
	ledger     ledger.Ledger
	authorizer Authorizer
}

// NewService constructs an issuance service. A nil authorizer rejects every
// call rather than silently allowing supply changes.
func NewService(ledgerBackend ledger.Ledger, authorizer Authorizer) (*Service, error) {
	if ledgerBackend == nil {
		return nil, fmt.Errorf("ledger backend is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	return &Service{ledger: ledgerBackend, authorizer: authorizer}, nil
}

// Input captures the data for a mint or burn.
type Input struct {
	TokenID    ledger.TokenID
	Account    ledger.AccountID
	Amount     int64
	Credential string
}

// Result describes the supply after a successful mint or burn.
type Result struct {
	TokenID     ledger.TokenID
	Account     ledger.AccountID
	Amount      int64
	TotalSupply int64
	CompletedAt time.Time
}

// Mint creates supply into the target account.
func (s *Service) Mint(ctx context.Context, input Input) (Result, error) {
	if err := s.authorizer.Authorize(ctx, input.Credential, ActionMint); err != nil {
		return Result{}, err
	}

	supply, err := s.ledger.Mint(ctx, input.TokenID, input.Account, input.Amount)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TokenID:     input.TokenID,
		Account:     input.Account,
		Amount:      input.Amount,
		TotalSupply: supply,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// Burn destroys supply held by the target account.
func (s *Service) Burn(ctx context.Context, input Input) (Result, error) {
	if err := s.authorizer.Authorize(ctx, input.Credential, ActionBurn); err != nil {
		return Result{}, err
	}

	supply, err := s.ledger.Burn(ctx, input.TokenID, input.Account, input.Amount)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TokenID:     input.TokenID,
		Account:     input.Account,
		Amount:      input.Amount,
		TotalSupply: supply,
		CompletedAt: time.Now().UTC(),
	}, nil
}
