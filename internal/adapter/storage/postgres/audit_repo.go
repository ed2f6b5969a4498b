package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository. The audit log is strictly
// append-only; sequence numbers come from a BIGSERIAL column so the
// stored order is the chain order.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Append inserts a sealed record and backfills its assigned sequence.
func (r *AuditRepo) Append(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error {
	query := `INSERT INTO audit_records (kind, entry_id, account_id, payload, actor, prev_hash, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING sequence`

	err := tx.QueryRow(ctx, query,
		rec.Kind, rec.EntryID, rec.AccountID, rec.Payload,
		rec.Actor, rec.PrevHash, rec.Hash, rec.CreatedAt,
	).Scan(&rec.Sequence)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// LastForUpdate locks and returns the chain head, or nil on an empty
// chain. Writers call this before sealing a new record; the row lock
// serializes concurrent appends.
func (r *AuditRepo) LastForUpdate(ctx context.Context, tx pgx.Tx) (*domain.AuditRecord, error) {
	query := `SELECT sequence, kind, entry_id, account_id, payload, actor, prev_hash, hash, created_at
		FROM audit_records ORDER BY sequence DESC LIMIT 1 FOR UPDATE`

	rec := &domain.AuditRecord{}
	err := tx.QueryRow(ctx, query).Scan(
		&rec.Sequence, &rec.Kind, &rec.EntryID, &rec.AccountID,
		&rec.Payload, &rec.Actor, &rec.PrevHash, &rec.Hash, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock audit head: %w", err)
	}
	return rec, nil
}

// Trail returns records matching the filter, oldest first.
func (r *AuditRepo) Trail(ctx context.Context, filter ports.AuditTrailFilter) ([]domain.AuditRecord, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.EntryID != nil {
		add("entry_id = $%d", *filter.EntryID)
	}
	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	query := `SELECT sequence, kind, entry_id, account_id, payload, actor, prev_hash, hash, created_at
		FROM audit_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sequence"

	return r.scanRecords(ctx, query, args...)
}

// All returns the entire chain, oldest first.
func (r *AuditRepo) All(ctx context.Context) ([]domain.AuditRecord, error) {
	query := `SELECT sequence, kind, entry_id, account_id, payload, actor, prev_hash, hash, created_at
		FROM audit_records ORDER BY sequence`
	return r.scanRecords(ctx, query)
}

func (r *AuditRepo) scanRecords(ctx context.Context, query string, args ...any) ([]domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		if err := rows.Scan(
			&rec.Sequence, &rec.Kind, &rec.EntryID, &rec.AccountID,
			&rec.Payload, &rec.Actor, &rec.PrevHash, &rec.Hash, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
