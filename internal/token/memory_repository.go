package token

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[ledger.TokenID]Token
}

// NewMemoryRepository constructs an in-memory repository for tests and
// database-less development runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[ledger.TokenID]Token)}
}

func (r *memoryRepository) Create(_ context.Context, token Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[token.ID]; exists {
		return errors.New("token details exist")
	}
	r.storage[token.ID] = token
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id ledger.TokenID) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.storage[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	return token, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokens := make([]Token, 0, len(r.storage))
	for _, token := range r.storage {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}
