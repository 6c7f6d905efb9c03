package ledger

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tokenbook/tokenbook/internal/events"
)

type balanceKey struct {
	token   TokenID
	account AccountID
}

type allowanceKey struct {
	token   TokenID
	owner   AccountID
	spender AccountID
}

type inMemoryLedger struct {
	mu         sync.RWMutex
	nextID     TokenID
	supplies   map[TokenID]int64
	balances   map[balanceKey]int64
	allowances map[allowanceKey]int64
	sink       events.Sink
}

// NewInMemory creates a concurrency-safe in-memory ledger. It is the
// reference state machine and the backend used by unit tests; sink may be
// nil when event reporting is not needed.
func NewInMemory(sink events.Sink) Ledger {
	return &inMemoryLedger{
		nextID:     1,
		supplies:   make(map[TokenID]int64),
		balances:   make(map[balanceKey]int64),
		allowances: make(map[allowanceKey]int64),
		sink:       sink,
	}
}

// emit reports a committed mutation. Delivery is best effort; sink failures
// never unwind ledger state.
func (l *inMemoryLedger) emit(ctx context.Context, event events.Event) {
	if l.sink == nil {
		return
	}
	event.At = time.Now().UTC()
	_ = l.sink.Publish(ctx, event)
}

func (l *inMemoryLedger) InitToken(ctx context.Context, requested *TokenID, owner AccountID, initialSupply int64) (TokenID, error) {
	if initialSupply < 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	id := l.nextID
	if requested != nil {
		id = *requested
	}
	if _, exists := l.supplies[id]; exists {
		l.mu.Unlock()
		return 0, ErrTokenExists
	}
	// Assignment stops advancing at the top of the id space; a wrapped nonce
	// would reuse identifiers.
	if id >= l.nextID && id < math.MaxUint32 {
		l.nextID = id + 1
	}
	l.supplies[id] = initialSupply
	l.balances[balanceKey{token: id, account: owner}] = initialSupply
	l.mu.Unlock()

	l.emit(ctx, events.Event{
		Type:   events.TypeTokenInitialized,
		Token:  uint32(id),
		To:     string(owner),
		Amount: initialSupply,
	})
	return id, nil
}

func (l *inMemoryLedger) BalanceOf(_ context.Context, id TokenID, account AccountID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, exists := l.supplies[id]; !exists {
		return 0, ErrUnknownToken
	}
	// Absent entry means zero balance on a known token.
	return l.balances[balanceKey{token: id, account: account}], nil
}

func (l *inMemoryLedger) TotalSupply(_ context.Context, id TokenID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	supply, exists := l.supplies[id]
	if !exists {
		return 0, ErrUnknownToken
	}
	return supply, nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, id TokenID, from, to AccountID, amount int64) (TransferResult, error) {
	if amount < 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	res, err := l.move(id, from, to, amount)
	l.mu.Unlock()
	if err != nil {
		return TransferResult{}, err
	}

	l.emit(ctx, events.Event{
		Type:   events.TypeTransfer,
		Token:  uint32(id),
		From:   string(from),
		To:     string(to),
		Amount: amount,
	})
	return res, nil
}

func (l *inMemoryLedger) Approve(ctx context.Context, id TokenID, owner, spender AccountID, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	if _, exists := l.supplies[id]; !exists {
		l.mu.Unlock()
		return ErrUnknownToken
	}
	// Absolute set: any prior allowance is overwritten, never summed.
	l.allowances[allowanceKey{token: id, owner: owner, spender: spender}] = amount
	l.mu.Unlock()

	l.emit(ctx, events.Event{
		Type:    events.TypeApproval,
		Token:   uint32(id),
		From:    string(owner),
		Spender: string(spender),
		Amount:  amount,
	})
	return nil
}

func (l *inMemoryLedger) Allowance(_ context.Context, id TokenID, owner, spender AccountID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, exists := l.supplies[id]; !exists {
		return 0, ErrUnknownToken
	}
	return l.allowances[allowanceKey{token: id, owner: owner, spender: spender}], nil
}

func (l *inMemoryLedger) TransferFrom(ctx context.Context, id TokenID, spender, owner, to AccountID, amount int64) (TransferResult, error) {
	if amount < 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	if _, exists := l.supplies[id]; !exists {
		l.mu.Unlock()
		return TransferResult{}, ErrUnknownToken
	}
	key := allowanceKey{token: id, owner: owner, spender: spender}
	allowance := l.allowances[key]
	// Both checks run before either mutation so a failure leaves allowance
	// and balances untouched.
	if allowance < amount {
		l.mu.Unlock()
		return TransferResult{}, ErrInsufficientAllowance
	}
	if l.balances[balanceKey{token: id, account: owner}] < amount {
		l.mu.Unlock()
		return TransferResult{}, ErrInsufficientBalance
	}
	l.allowances[key] = allowance - amount
	res, err := l.move(id, owner, to, amount)
	l.mu.Unlock()
	if err != nil {
		return TransferResult{}, err
	}

	l.emit(ctx, events.Event{
		Type:    events.TypeTransfer,
		Token:   uint32(id),
		From:    string(owner),
		To:      string(to),
		Spender: string(spender),
		Amount:  amount,
	})
	return res, nil
}

func (l *inMemoryLedger) Mint(ctx context.Context, id TokenID, to AccountID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	supply, exists := l.supplies[id]
	if !exists {
		l.mu.Unlock()
		return 0, ErrUnknownToken
	}
	if amount > math.MaxInt64-supply {
		l.mu.Unlock()
		return 0, ErrInvalidAmount
	}
	supply += amount
	l.supplies[id] = supply
	l.balances[balanceKey{token: id, account: to}] += amount
	l.mu.Unlock()

	l.emit(ctx, events.Event{
		Type:   events.TypeMint,
		Token:  uint32(id),
		To:     string(to),
		Amount: amount,
	})
	return supply, nil
}

func (l *inMemoryLedger) Burn(ctx context.Context, id TokenID, from AccountID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	supply, exists := l.supplies[id]
	if !exists {
		l.mu.Unlock()
		return 0, ErrUnknownToken
	}
	key := balanceKey{token: id, account: from}
	if l.balances[key] < amount {
		l.mu.Unlock()
		return 0, ErrInsufficientBalance
	}
	supply -= amount
	l.supplies[id] = supply
	l.balances[key] -= amount
	l.mu.Unlock()

	l.emit(ctx, events.Event{
		Type:   events.TypeBurn,
		Token:  uint32(id),
		From:   string(from),
		Amount: amount,
	})
	return supply, nil
}

// move applies a validated balance movement. Caller must hold the write lock
// and have verified amount >= 0.
func (l *inMemoryLedger) move(id TokenID, from, to AccountID, amount int64) (TransferResult, error) {
	if _, exists := l.supplies[id]; !exists {
		return TransferResult{}, ErrUnknownToken
	}

	fromKey := balanceKey{token: id, account: from}
	fromBalance := l.balances[fromKey]
	if fromBalance < amount {
		return TransferResult{}, ErrInsufficientBalance
	}

	if from == to {
		// Self-transfer succeeds but must not double-credit.
		return TransferResult{Token: id, FromBalance: fromBalance, ToBalance: fromBalance}, nil
	}

	toKey := balanceKey{token: id, account: to}
	fromBalance -= amount
	toBalance := l.balances[toKey] + amount
	l.balances[fromKey] = fromBalance
	l.balances[toKey] = toBalance

	return TransferResult{Token: id, FromBalance: fromBalance, ToBalance: toBalance}, nil
}
