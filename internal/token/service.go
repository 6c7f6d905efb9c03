package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// Service exposes token lifecycle and query operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a token service instance.
func NewService(repo Repository, ledgerBackend ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledgerBackend}
}

// CreateInput captures data required to initialize a token.
type CreateInput struct {
	RequestedID   *ledger.TokenID
	Name          string
	Ticker        string
	Owner         ledger.AccountID
	InitialSupply int64
}

// Create initializes a new token universe crediting the initial supply to
// the owner, then records the descriptive details.
func (s *Service) Create(ctx context.Context, input CreateInput) (Token, error) {
	if input.Owner == "" {
		return Token{}, fmt.Errorf("owner is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Token{}, fmt.Errorf("name is required")
	}
	ticker := strings.ToUpper(strings.TrimSpace(input.Ticker))
	if ticker == "" {
		return Token{}, fmt.Errorf("ticker is required")
	}

	id, err := s.ledger.InitToken(ctx, input.RequestedID, input.Owner, input.InitialSupply)
	if err != nil {
		return Token{}, err
	}

	tok := Token{
		ID:        id,
		Name:      name,
		Ticker:    ticker,
		Creator:   input.Owner,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Get retrieves token details.
func (s *Service) Get(ctx context.Context, id ledger.TokenID) (Token, error) {
	return s.repo.Get(ctx, id)
}

// List returns details for every initialized token.
func (s *Service) List(ctx context.Context) ([]Token, error) {
	return s.repo.List(ctx)
}

// Supply returns the recorded total supply for the token.
func (s *Service) Supply(ctx context.Context, id ledger.TokenID) (Supply, error) {
	amount, err := s.ledger.TotalSupply(ctx, id)
	if err != nil {
		return Supply{}, err
	}
	return Supply{TokenID: id, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Balance returns the ledger balance one account holds on the token.
func (s *Service) Balance(ctx context.Context, id ledger.TokenID, account ledger.AccountID) (Balance, error) {
	amount, err := s.ledger.BalanceOf(ctx, id, account)
	if err != nil {
		return Balance{}, err
	}
	return Balance{TokenID: id, Account: account, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Allowance returns the remaining amount the spender may move out of the
// owner's balance.
func (s *Service) Allowance(ctx context.Context, id ledger.TokenID, owner, spender ledger.AccountID) (int64, error) {
	return s.ledger.Allowance(ctx, id, owner, spender)
}
