package ports

import (
	"context"
	"time"

	"ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence for the chart of accounts.
// Methods accepting pgx.Tx run inside transaction blocks; LockForUpdate
// acquires row locks in ascending account-id order so that entries
// touching overlapping account sets never deadlock.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.AccountStatus) error
}

// EntryRepository defines persistence for journal entries and their
// postings. Entries and postings are append-only: there is no update
// except the status flip to reversed, and no delete.
type EntryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error)
	MarkReversed(ctx context.Context, tx pgx.Tx, id, reversedBy uuid.UUID) error
	ListInWindow(ctx context.Context, from, to time.Time) ([]domain.JournalEntry, error)
	// SumPostings replays an account's postings for point-in-time
	// balances: the signed sum and highest sequence at or before asOf.
	SumPostings(ctx context.Context, accountID uuid.UUID, asOf time.Time) (int64, int64, error)
	// SumPostingsBySequence is the sequence-addressed variant.
	SumPostingsBySequence(ctx context.Context, accountID uuid.UUID, upToSeq int64) (int64, int64, error)
}

// BalanceRepository defines persistence for the derived balance cache.
type BalanceRepository interface {
	Init(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) error
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error)
	// Apply adds delta to the cached amount and advances the per-account
	// sequence by one, returning the new sequence. The caller must hold
	// the account row lock.
	Apply(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error)
}

// IdempotencyRepository defines the durable idempotency record store.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// AuditTrailFilter selects audit records for export.
type AuditTrailFilter struct {
	EntryID   *uuid.UUID
	AccountID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// AuditRepository defines persistence for the hash-chained audit log.
type AuditRepository interface {
	// Append inserts a sealed record. LastForUpdate must have been
	// called in the same transaction: chain appends are serialized by
	// locking the current head.
	Append(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error
	LastForUpdate(ctx context.Context, tx pgx.Tx) (*domain.AuditRecord, error)
	Trail(ctx context.Context, filter AuditTrailFilter) ([]domain.AuditRecord, error)
	All(ctx context.Context) ([]domain.AuditRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
