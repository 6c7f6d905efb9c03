package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenbook/tokenbook/internal/events"
)

// PostgresLedger persists token supplies, balances and allowances in
// PostgreSQL. Each mutating operation runs in a single transaction with row
// locks on every entry it touches, so concurrent transfers against the same
// token cannot observe stale balances.
type PostgresLedger struct {
	db   *pgxpool.Pool
	sink events.Sink
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, sink events.Sink) *PostgresLedger {
	return &PostgresLedger{db: db, sink: sink}
}

// Migrate creates the ledger tables when they do not exist yet.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
            id BIGINT PRIMARY KEY,
            total_supply BIGINT NOT NULL CHECK (total_supply >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS balances (
            token_id BIGINT NOT NULL REFERENCES tokens (id),
            account TEXT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount >= 0),
            PRIMARY KEY (token_id, account)
        )`,
		`CREATE TABLE IF NOT EXISTS allowances (
            token_id BIGINT NOT NULL REFERENCES tokens (id),
            owner_account TEXT NOT NULL,
            spender_account TEXT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount >= 0),
            PRIMARY KEY (token_id, owner_account, spender_account)
        )`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
	}
	return nil
}

func (l *PostgresLedger) emit(ctx context.Context, event events.Event) {
	if l.sink == nil {
		return
	}
	event.At = time.Now().UTC()
	_ = l.sink.Publish(ctx, event)
}

// InitToken creates a new token universe crediting the full initial supply
// to the owner. Token creation is rare, so the whole table is locked while
// the next identifier is assigned.
func (l *PostgresLedger) InitToken(ctx context.Context, requested *TokenID, owner AccountID, initialSupply int64) (TokenID, error) {
	if initialSupply < 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `LOCK TABLE tokens IN EXCLUSIVE MODE`); err != nil {
		return 0, err
	}

	var id TokenID
	if requested != nil {
		id = *requested
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE id = $1)`, int64(id)).Scan(&exists); err != nil {
			return 0, err
		}
		if exists {
			return 0, ErrTokenExists
		}
	} else {
		var next int64
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM tokens`).Scan(&next); err != nil {
			return 0, err
		}
		// The id space is exhausted once the top identifier is taken; the
		// nonce never wraps into reused ids.
		if next > math.MaxUint32 {
			return 0, ErrTokenExists
		}
		id = TokenID(next)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO tokens (id, total_supply) VALUES ($1, $2)`, int64(id), initialSupply); err != nil {
		return 0, err
	}
	if err := setBalance(ctx, tx, id, owner, initialSupply); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	l.emit(ctx, events.Event{
		Type:   events.TypeTokenInitialized,
		Token:  uint32(id),
		To:     string(owner),
		Amount: initialSupply,
	})
	return id, nil
}

// BalanceOf returns the balance for an account, zero when no entry exists.
// The join keeps the unknown-token check and the balance read in a single
// statement so the pair is never torn.
func (l *PostgresLedger) BalanceOf(ctx context.Context, id TokenID, account AccountID) (int64, error) {
	const query = `
        SELECT COALESCE(b.amount, 0)
        FROM tokens t
        LEFT JOIN balances b ON b.token_id = t.id AND b.account = $2
        WHERE t.id = $1`
	var balance int64
	if err := l.db.QueryRow(ctx, query, int64(id), string(account)).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownToken
		}
		return 0, err
	}
	return balance, nil
}

// TotalSupply returns the recorded supply for the token.
func (l *PostgresLedger) TotalSupply(ctx context.Context, id TokenID) (int64, error) {
	var supply int64
	if err := l.db.QueryRow(ctx, `SELECT total_supply FROM tokens WHERE id = $1`, int64(id)).Scan(&supply); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownToken
		}
		return 0, err
	}
	return supply, nil
}

// Transfer moves amount between two accounts of the same token. Supply is
// untouched; the two balance rows are locked for the duration.
func (l *PostgresLedger) Transfer(ctx context.Context, id TokenID, from, to AccountID, amount int64) (TransferResult, error) {
	if amount < 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := supplyForUpdate(ctx, tx, id); err != nil {
		return TransferResult{}, err
	}

	res, err := move(ctx, tx, id, from, to, amount)
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
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

// Approve sets the spender allowance to amount, overwriting any prior value.
func (l *PostgresLedger) Approve(ctx context.Context, id TokenID, owner, spender AccountID, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := supplyForUpdate(ctx, tx, id); err != nil {
		return err
	}
	if err := setAllowance(ctx, tx, id, owner, spender, amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	l.emit(ctx, events.Event{
		Type:    events.TypeApproval,
		Token:   uint32(id),
		From:    string(owner),
		Spender: string(spender),
		Amount:  amount,
	})
	return nil
}

// Allowance returns the remaining spender allowance, zero when none was set.
func (l *PostgresLedger) Allowance(ctx context.Context, id TokenID, owner, spender AccountID) (int64, error) {
	const query = `
        SELECT COALESCE(a.amount, 0)
        FROM tokens t
        LEFT JOIN allowances a
            ON a.token_id = t.id AND a.owner_account = $2 AND a.spender_account = $3
        WHERE t.id = $1`
	var allowance int64
	if err := l.db.QueryRow(ctx, query, int64(id), string(owner), string(spender)).Scan(&allowance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownToken
		}
		return 0, err
	}
	return allowance, nil
}

// TransferFrom spends from the owner's balance on the strength of a prior
// approval. Allowance and balance are both validated before either row is
// written so a failure leaves the ledger untouched.
func (l *PostgresLedger) TransferFrom(ctx context.Context, id TokenID, spender, owner, to AccountID, amount int64) (TransferResult, error) {
	if amount < 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := supplyForUpdate(ctx, tx, id); err != nil {
		return TransferResult{}, err
	}

	allowance, err := allowanceForUpdate(ctx, tx, id, owner, spender)
	if err != nil {
		return TransferResult{}, err
	}
	if allowance < amount {
		return TransferResult{}, ErrInsufficientAllowance
	}
	ownerBalance, err := balanceForUpdate(ctx, tx, id, owner)
	if err != nil {
		return TransferResult{}, err
	}
	if ownerBalance < amount {
		return TransferResult{}, ErrInsufficientBalance
	}

	if err := setAllowance(ctx, tx, id, owner, spender, allowance-amount); err != nil {
		return TransferResult{}, err
	}
	res, err := move(ctx, tx, id, owner, to, amount)
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
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

// Mint credits newly created supply to an account.
func (l *PostgresLedger) Mint(ctx context.Context, id TokenID, to AccountID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	supply, err := supplyForUpdate(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if amount > math.MaxInt64-supply {
		return 0, ErrInvalidAmount
	}
	supply += amount

	balance, err := balanceForUpdate(ctx, tx, id, to)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE tokens SET total_supply = $2 WHERE id = $1`, int64(id), supply); err != nil {
		return 0, err
	}
	if err := setBalance(ctx, tx, id, to, balance+amount); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	l.emit(ctx, events.Event{
		Type:   events.TypeMint,
		Token:  uint32(id),
		To:     string(to),
		Amount: amount,
	})
	return supply, nil
}

// Burn destroys supply held by an account.
func (l *PostgresLedger) Burn(ctx context.Context, id TokenID, from AccountID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	supply, err := supplyForUpdate(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	balance, err := balanceForUpdate(ctx, tx, id, from)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientBalance
	}
	supply -= amount

	if _, err := tx.Exec(ctx, `UPDATE tokens SET total_supply = $2 WHERE id = $1`, int64(id), supply); err != nil {
		return 0, err
	}
	if err := setBalance(ctx, tx, id, from, balance-amount); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	l.emit(ctx, events.Event{
		Type:   events.TypeBurn,
		Token:  uint32(id),
		From:   string(from),
		Amount: amount,
	})
	return supply, nil
}

func supplyForUpdate(ctx context.Context, tx pgx.Tx, id TokenID) (int64, error) {
	var supply int64
	if err := tx.QueryRow(ctx, `SELECT total_supply FROM tokens WHERE id = $1 FOR UPDATE`, int64(id)).Scan(&supply); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownToken
		}
		return 0, err
	}
	return supply, nil
}

func balanceForUpdate(ctx context.Context, tx pgx.Tx, id TokenID, account AccountID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT amount FROM balances WHERE token_id = $1 AND account = $2 FOR UPDATE`,
		int64(id), string(account)).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

func setBalance(ctx context.Context, tx pgx.Tx, id TokenID, account AccountID, amount int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO balances (token_id, account, amount) VALUES ($1, $2, $3)
        ON CONFLICT (token_id, account) DO UPDATE SET amount = EXCLUDED.amount`,
		int64(id), string(account), amount)
	return err
}

func allowanceForUpdate(ctx context.Context, tx pgx.Tx, id TokenID, owner, spender AccountID) (int64, error) {
	var allowance int64
	err := tx.QueryRow(ctx, `SELECT amount FROM allowances
        WHERE token_id = $1 AND owner_account = $2 AND spender_account = $3 FOR UPDATE`,
		int64(id), string(owner), string(spender)).Scan(&allowance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return allowance, nil
}

func setAllowance(ctx context.Context, tx pgx.Tx, id TokenID, owner, spender AccountID, amount int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO allowances (token_id, owner_account, spender_account, amount)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (token_id, owner_account, spender_account) DO UPDATE SET amount = EXCLUDED.amount`,
		int64(id), string(owner), string(spender), amount)
	return err
}

// move locks both balance rows, validates funds and rewrites the pair.
// Caller has already verified the token exists and amount >= 0.
func move(ctx context.Context, tx pgx.Tx, id TokenID, from, to AccountID, amount int64) (TransferResult, error) {
	fromBalance, err := balanceForUpdate(ctx, tx, id, from)
	if err != nil {
		return TransferResult{}, err
	}
	if fromBalance < amount {
		return TransferResult{}, ErrInsufficientBalance
	}

	if from == to {
		// Self-transfer succeeds but must not double-credit.
		return TransferResult{Token: id, FromBalance: fromBalance, ToBalance: fromBalance}, nil
	}

	toBalance, err := balanceForUpdate(ctx, tx, id, to)
	if err != nil {
		return TransferResult{}, err
	}
	fromBalance -= amount
	toBalance += amount

	if err := setBalance(ctx, tx, id, from, fromBalance); err != nil {
		return TransferResult{}, err
	}
	if err := setBalance(ctx, tx, id, to, toBalance); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Token: id, FromBalance: fromBalance, ToBalance: toBalance}, nil
}
