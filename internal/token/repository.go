package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenbook/tokenbook/internal/ledger"
)

// ErrNotFound indicates the token has no stored details.
var ErrNotFound = errors.New("token details not found")

// Repository persists token details. Supplies and balances live in the
// ledger; this only covers the descriptive fields.
type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, id ledger.TokenID) (Token, error)
	List(ctx context.Context) ([]Token, error)
}

// PostgresRepository stores token details in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the token details table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS token_details (
            id BIGINT PRIMARY KEY,
            name TEXT NOT NULL,
            ticker TEXT NOT NULL,
            creator TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );`
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate token details schema: %w", err)
	}
	return nil
}

// Create inserts a token details record.
func (r *PostgresRepository) Create(ctx context.Context, token Token) error {
	_, err := r.db.Exec(ctx, `INSERT INTO token_details (id, name, ticker, creator, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		int64(token.ID), token.Name, token.Ticker, string(token.Creator), token.CreatedAt.UTC())
	return err
}

// Get fetches token details by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id ledger.TokenID) (Token, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, ticker, creator, created_at
        FROM token_details WHERE id = $1`, int64(id))

	var tok Token
	var tokenID int64
	var creator string
	var createdAt time.Time
	if err := row.Scan(&tokenID, &tok.Name, &tok.Ticker, &creator, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrNotFound
		}
		return Token{}, err
	}
	tok.ID = ledger.TokenID(tokenID)
	tok.Creator = ledger.AccountID(creator)
	tok.CreatedAt = createdAt.UTC()
	return tok, nil
}

// List returns details for every initialized token.
func (r *PostgresRepository) List(ctx context.Context) ([]Token, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, ticker, creator, created_at
        FROM token_details ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var tok Token
		var tokenID int64
		var creator string
		var createdAt time.Time
		if err := rows.Scan(&tokenID, &tok.Name, &tok.Ticker, &creator, &createdAt); err != nil {
			return nil, err
		}
		tok.ID = ledger.TokenID(tokenID)
		tok.Creator = ledger.AccountID(creator)
		tok.CreatedAt = createdAt.UTC()
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}
