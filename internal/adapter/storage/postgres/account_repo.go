package postgres

import (
	"context"
	"errors"
	"fmt"

	"ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account within a transaction.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (id, name, type, currency, status, parent_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.Name, a.Type, a.Currency, a.Status,
		a.ParentID, a.Metadata, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, name, type, currency, status, parent_id, metadata, created_at, updated_at
		FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Type, &a.Currency, &a.Status,
		&a.ParentID, &a.Metadata, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// List returns the full chart of accounts ordered by creation time.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT id, name, type, currency, status, parent_id, metadata, created_at, updated_at
		FROM accounts ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Type, &a.Currency, &a.Status,
			&a.ParentID, &a.Metadata, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// LockForUpdate takes FOR UPDATE row locks on the given accounts. The
// caller passes ids pre-sorted ascending; ORDER BY id keeps the lock
// acquisition order identical across concurrent transactions. Missing
// ids are simply absent from the result map.
func (r *AccountRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	query := `SELECT id, name, type, currency, status, parent_id, metadata, created_at, updated_at
		FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[uuid.UUID]*domain.Account, len(ids))
	for rows.Next() {
		a := &domain.Account{}
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Type, &a.Currency, &a.Status,
			&a.ParentID, &a.Metadata, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan locked account: %w", err)
		}
		accounts[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked accounts: %w", err)
	}
	return accounts, nil
}

// UpdateStatus changes an account's lifecycle status within a transaction.
func (r *AccountRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}
