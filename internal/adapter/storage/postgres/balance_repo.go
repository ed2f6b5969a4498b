package postgres

import (
	"context"
	"errors"
	"fmt"

	"ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository over the materialized
// balance cache. Rows are only ever written under the owning account's
// row lock, so plain UPDATEs are race-free here.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Init materializes the zero balance row for a new account.
func (r *BalanceRepo) Init(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) error {
	query := `INSERT INTO balances (account_id, amount, currency, sequence, updated_at)
		VALUES ($1, 0, $2, 0, NOW())`

	if _, err := tx.Exec(ctx, query, accountID, currency); err != nil {
		return fmt.Errorf("init balance: %w", err)
	}
	return nil
}

// Get reads the cached balance without locking.
func (r *BalanceRepo) Get(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT account_id, amount, currency, sequence, updated_at
		FROM balances WHERE account_id = $1`

	b := &domain.Balance{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&b.AccountID, &b.Amount, &b.Currency, &b.Sequence, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Apply adds delta to the cached amount and advances the account's
// sequence, returning the new sequence. Must run inside the transaction
// that holds the account row lock.
func (r *BalanceRepo) Apply(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE balances
		SET amount = amount + $1, sequence = sequence + 1, updated_at = NOW()
		WHERE account_id = $2
		RETURNING sequence`

	var seq int64
	if err := tx.QueryRow(ctx, query, delta, accountID).Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("balance row missing for account %s", accountID)
		}
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}
	return seq, nil
}
