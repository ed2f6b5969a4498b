package service

import (
	"context"
	"sync"
	"time"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory fakes backing the service tests. They honor the same
// contracts as the postgres adapters minus real locking: service tests
// exercise the pipeline logic, not row locks.

// --- Account repo ---

type fakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAccountRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			cp := *a
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// --- Entry repo ---

type fakeEntryRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.JournalEntry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[uuid.UUID]*domain.JournalEntry)}
}

func (r *fakeEntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	cp.Postings = append([]domain.Posting(nil), e.Postings...)
	r.entries[e.ID] = &cp
	return nil
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.Postings = append([]domain.Posting(nil), e.Postings...)
	return &cp, nil
}

func (r *fakeEntryRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id, reversedBy uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status == domain.EntryStatusReversed {
		return pgx.ErrNoRows
	}
	e.Status = domain.EntryStatusReversed
	e.ReversedBy = &reversedBy
	return nil
}

func (r *fakeEntryRepo) ListInWindow(ctx context.Context, from, to time.Time) ([]domain.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.JournalEntry
	for _, e := range r.entries {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			cp := *e
			cp.Postings = append([]domain.Posting(nil), e.Postings...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) SumPostings(ctx context.Context, accountID uuid.UUID, asOf time.Time) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum, maxSeq int64
	for _, e := range r.entries {
		if e.CreatedAt.After(asOf) {
			continue
		}
		for _, p := range e.Postings {
			if p.AccountID == accountID {
				sum += p.Amount
				if p.Sequence > maxSeq {
					maxSeq = p.Sequence
				}
			}
		}
	}
	return sum, maxSeq, nil
}

func (r *fakeEntryRepo) SumPostingsBySequence(ctx context.Context, accountID uuid.UUID, upToSeq int64) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum, maxSeq int64
	for _, e := range r.entries {
		for _, p := range e.Postings {
			if p.AccountID == accountID && p.Sequence <= upToSeq {
				sum += p.Amount
				if p.Sequence > maxSeq {
					maxSeq = p.Sequence
				}
			}
		}
	}
	return sum, maxSeq, nil
}

// --- Balance repo ---

type fakeBalanceRepo struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*domain.Balance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[uuid.UUID]*domain.Balance)}
}

func (r *fakeBalanceRepo) Init(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[accountID]; !ok {
		r.balances[accountID] = &domain.Balance{
			AccountID: accountID,
			Currency:  currency,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return nil
}

func (r *fakeBalanceRepo) Get(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBalanceRepo) Apply(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	b.Amount += delta
	b.Sequence++
	b.UpdatedAt = time.Now().UTC()
	return b.Sequence, nil
}

// --- Idempotency repo ---

type fakeIdempotencyRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *fakeIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.Key] = &cp
	return nil
}

func (r *fakeIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// --- Audit repo ---

type fakeAuditRepo struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (r *fakeAuditRepo) Append(ctx context.Context, tx pgx.Tx, rec *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Sequence = int64(len(r.records) + 1)
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeAuditRepo) LastForUpdate(ctx context.Context, tx pgx.Tx) (*domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return nil, nil
	}
	cp := r.records[len(r.records)-1]
	return &cp, nil
}

func (r *fakeAuditRepo) Trail(ctx context.Context, filter ports.AuditTrailFilter) ([]domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AuditRecord
	for _, rec := range r.records {
		if filter.EntryID != nil && (rec.EntryID == nil || *rec.EntryID != *filter.EntryID) {
			continue
		}
		if filter.AccountID != nil && (rec.AccountID == nil || *rec.AccountID != *filter.AccountID) {
			continue
		}
		if filter.From != nil && rec.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !rec.CreatedAt.Before(*filter.To) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeAuditRepo) All(ctx context.Context) ([]domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditRecord(nil), r.records...), nil
}

// --- Idempotency store (fast path) ---

type fakeReservation struct {
	inflight bool
	data     []byte
}

type fakeIdempotencyStore struct {
	mu           sync.Mutex
	reservations map[string]*fakeReservation
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{reservations: make(map[string]*fakeReservation)}
}

func (s *fakeIdempotencyStore) CheckOrReserve(ctx context.Context, key string, inflightTTL time.Duration) (ports.ReserveState, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[key]
	if !ok {
		s.reservations[key] = &fakeReservation{inflight: true}
		return ports.ReserveAcquired, nil, nil
	}
	if res.inflight {
		return ports.ReserveInFlight, nil, nil
	}
	return ports.ReserveFound, res.data, nil
}

func (s *fakeIdempotencyStore) StoreResult(ctx context.Context, key string, response []byte, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[key] = &fakeReservation{data: response}
	return nil
}

func (s *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, key)
	return nil
}

// --- Transactor (no-op tx) ---

type fakeTransactor struct{}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
