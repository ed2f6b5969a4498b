package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements ports.EntryRepository. Journal entries and their
// postings are append-only; the only mutation ever issued is the status
// flip of an entry to reversed.
type EntryRepo struct {
	pool Pool
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// Create inserts an entry and its postings within a transaction.
func (r *EntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	entryQuery := `INSERT INTO journal_entries (id, idempotency_key, reference_id, description, status, reversal_of, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, entryQuery,
		e.ID, e.IdempotencyKey, e.ReferenceID, e.Description,
		e.Status, e.ReversalOf, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	postingQuery := `INSERT INTO postings (id, entry_id, account_id, amount, currency, sequence)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, p := range e.Postings {
		if _, err := tx.Exec(ctx, postingQuery,
			p.ID, p.EntryID, p.AccountID, p.Amount, p.Currency, p.Sequence,
		); err != nil {
			return fmt.Errorf("insert posting: %w", err)
		}
	}
	return nil
}

// GetByID fetches an entry with its postings.
func (r *EntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error) {
	query := `SELECT id, idempotency_key, reference_id, description, status, reversal_of, reversed_by, created_at
		FROM journal_entries WHERE id = $1`

	e := &domain.JournalEntry{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.IdempotencyKey, &e.ReferenceID, &e.Description,
		&e.Status, &e.ReversalOf, &e.ReversedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry by id: %w", err)
	}

	if err := r.loadPostings(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// MarkReversed flips a posted entry to reversed and links the reversing
// entry. Returns pgx.ErrNoRows when the entry is missing or was already
// reversed, so callers can distinguish a lost race from a real failure.
func (r *EntryRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id, reversedBy uuid.UUID) error {
	query := `UPDATE journal_entries SET status = $1, reversed_by = $2 WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, domain.EntryStatusReversed, reversedBy, id, domain.EntryStatusPosted)
	if err != nil {
		return fmt.Errorf("mark entry reversed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListInWindow returns entries committed in [from, to), postings
// included, ordered by creation time.
func (r *EntryRepo) ListInWindow(ctx context.Context, from, to time.Time) ([]domain.JournalEntry, error) {
	query := `SELECT id, idempotency_key, reference_id, description, status, reversal_of, reversed_by, created_at
		FROM journal_entries WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list entries in window: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(
			&e.ID, &e.IdempotencyKey, &e.ReferenceID, &e.Description,
			&e.Status, &e.ReversalOf, &e.ReversedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	for i := range entries {
		if err := r.loadPostings(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// SumPostings replays an account's posting history up to asOf, returning
// the signed sum and the highest sequence seen.
func (r *EntryRepo) SumPostings(ctx context.Context, accountID uuid.UUID, asOf time.Time) (int64, int64, error) {
	query := `SELECT COALESCE(SUM(p.amount), 0), COALESCE(MAX(p.sequence), 0)
		FROM postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE p.account_id = $1 AND e.created_at <= $2`

	var sum, seq int64
	if err := r.pool.QueryRow(ctx, query, accountID, asOf).Scan(&sum, &seq); err != nil {
		return 0, 0, fmt.Errorf("sum postings as of time: %w", err)
	}
	return sum, seq, nil
}

// SumPostingsBySequence is the sequence-addressed replay.
func (r *EntryRepo) SumPostingsBySequence(ctx context.Context, accountID uuid.UUID, upToSeq int64) (int64, int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0), COALESCE(MAX(sequence), 0)
		FROM postings WHERE account_id = $1 AND sequence <= $2`

	var sum, seq int64
	if err := r.pool.QueryRow(ctx, query, accountID, upToSeq).Scan(&sum, &seq); err != nil {
		return 0, 0, fmt.Errorf("sum postings by sequence: %w", err)
	}
	return sum, seq, nil
}

func (r *EntryRepo) loadPostings(ctx context.Context, e *domain.JournalEntry) error {
	query := `SELECT id, entry_id, account_id, amount, currency, sequence
		FROM postings WHERE entry_id = $1 ORDER BY sequence, id`

	rows, err := r.pool.Query(ctx, query, e.ID)
	if err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Posting
		if err := rows.Scan(&p.ID, &p.EntryID, &p.AccountID, &p.Amount, &p.Currency, &p.Sequence); err != nil {
			return fmt.Errorf("scan posting: %w", err)
		}
		e.Postings = append(e.Postings, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate postings: %w", err)
	}
	return nil
}
