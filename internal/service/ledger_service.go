package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// LedgerOptions tunes the posting pipeline. Zero values fall back to the
// defaults below.
type LedgerOptions struct {
	// InflightTTL bounds how long a reservation survives a crashed writer.
	InflightTTL time.Duration
	// InflightWait is the total time a duplicate submission waits for the
	// first one to commit before being rejected.
	InflightWait time.Duration
	// PollInterval is the wait-loop poll period.
	PollInterval time.Duration
	// Retention is how long committed results stay cached.
	Retention time.Duration
	// MaxAttempts bounds the commit retry loop on lock conflicts.
	MaxAttempts int
	// RetryBackoff is the sleep between commit attempts.
	RetryBackoff time.Duration
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	if o.InflightTTL <= 0 {
		o.InflightTTL = 30 * time.Second
	}
	if o.InflightWait <= 0 {
		o.InflightWait = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 25 * time.Millisecond
	}
	return o
}

// idempotencyEnvelope is the cached shape of a committed submission. The
// payload hash travels with the response so a key reuse with a different
// payload is detected even on the fast path.
type idempotencyEnvelope struct {
	PayloadHash string               `json:"payload_hash"`
	Entry       *domain.JournalEntry `json:"entry"`
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	entryRepo   ports.EntryRepository
	balanceRepo ports.BalanceRepository
	idempRepo   ports.IdempotencyRepository
	auditRepo   ports.AuditRepository
	idempStore  ports.IdempotencyStore
	transactor  ports.DBTransactor
	opts        LedgerOptions
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	entryRepo ports.EntryRepository,
	balanceRepo ports.BalanceRepository,
	idempRepo ports.IdempotencyRepository,
	auditRepo ports.AuditRepository,
	idempStore ports.IdempotencyStore,
	transactor ports.DBTransactor,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
		idempRepo:   idempRepo,
		auditRepo:   auditRepo,
		idempStore:  idempStore,
		transactor:  transactor,
		opts:        opts.withDefaults(),
		log:         log,
	}
}

// PostEntry validates and atomically commits a balanced posting set. A
// retry carrying the same idempotency key and payload returns the
// original committed entry; the same key with a different payload is a
// conflict.
func (s *LedgerServiceImpl) PostEntry(ctx context.Context, req ports.PostEntryRequest) (*domain.JournalEntry, error) {
	return s.post(ctx, req, nil, domain.AuditKindEntryPosted)
}

// ReverseEntry posts the exact negation of an existing entry through the
// full posting pipeline and marks the original as reversed. The reversal
// key is derived from the original entry id, so retried reversals are
// idempotent by construction.
func (s *LedgerServiceImpl) ReverseEntry(ctx context.Context, entryID uuid.UUID, actor string) (*domain.JournalEntry, error) {
	orig, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get entry: %w", err))
	}
	if orig == nil {
		return nil, apperror.ErrEntryNotFound(entryID.String())
	}
	if orig.Status == domain.EntryStatusReversed {
		return nil, apperror.ErrEntryAlreadyReversed(entryID.String())
	}

	lines, err := orig.NegatedLines()
	if err != nil {
		return nil, apperror.ErrAmountOverflow()
	}

	req := ports.PostEntryRequest{
		IdempotencyKey: "reverse:" + entryID.String(),
		ReferenceID:    "REV-" + orig.ReferenceID,
		Description:    "Reversal of entry " + entryID.String(),
		Actor:          actor,
		Lines:          lines,
	}
	return s.post(ctx, req, &orig.ID, domain.AuditKindEntryReversed)
}

// GetEntry fetches one journal entry with its postings.
func (s *LedgerServiceImpl) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.JournalEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrEntryNotFound(entryID.String())
	}
	return entry, nil
}

// post is the shared pipeline behind PostEntry and ReverseEntry:
// validate, reserve the idempotency key, commit under per-account locks
// with bounded retries, then publish the result.
func (s *LedgerServiceImpl) post(ctx context.Context, req ports.PostEntryRequest, reversalOf *uuid.UUID, kind domain.AuditKind) (*domain.JournalEntry, error) {
	if req.IdempotencyKey == "" {
		return nil, apperror.Validation("idempotency key is required")
	}
	if err := domain.ValidatePostingSet(req.Lines); err != nil {
		return nil, postingSetError(err)
	}

	payloadHash := domain.HashPostingRequest(req.ReferenceID, req.Description, req.Lines)

	// Layer 1: Redis check-or-reserve
	state, cached, err := s.idempStore.CheckOrReserve(ctx, req.IdempotencyKey, s.opts.InflightTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("key", req.IdempotencyKey).Msg("redis idempotency check failed, falling through to DB")
		state = ports.ReserveAcquired
	}

	switch state {
	case ports.ReserveFound:
		return s.replayEnvelope(cached, req.IdempotencyKey, payloadHash)
	case ports.ReserveInFlight:
		state, cached, err = s.awaitInflight(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if state == ports.ReserveFound {
			return s.replayEnvelope(cached, req.IdempotencyKey, payloadHash)
		}
		// Reservation acquired after the prior holder released it.
	}

	// Layer 2: durable record check. Redis is a cache; the record in
	// Postgres is the source of truth and survives cache eviction.
	rec, err := s.idempRepo.Get(ctx, req.IdempotencyKey)
	if err != nil {
		s.releaseReservation(ctx, req.IdempotencyKey)
		return nil, apperror.ErrDatabaseError(fmt.Errorf("db idempotency check: %w", err))
	}
	if rec != nil {
		entry, replayErr := s.replayRecord(rec, payloadHash)
		if replayErr != nil {
			s.releaseReservation(ctx, req.IdempotencyKey)
			return nil, replayErr
		}
		s.storeResult(ctx, req.IdempotencyKey, payloadHash, entry)
		return entry, nil
	}

	// Commit loop: lock conflicts and serialization failures retry with
	// backoff, everything else surfaces immediately.
	var entry *domain.JournalEntry
	for attempt := 1; ; attempt++ {
		entry, err = s.commit(ctx, req, payloadHash, reversalOf, kind)
		if err == nil {
			break
		}
		if attempt >= s.opts.MaxAttempts || !isLockConflict(err) {
			s.releaseReservation(ctx, req.IdempotencyKey)
			return nil, err
		}
		s.log.Warn().Err(err).
			Str("key", req.IdempotencyKey).
			Int("attempt", attempt).
			Msg("lock conflict, retrying commit")
		select {
		case <-ctx.Done():
			s.releaseReservation(ctx, req.IdempotencyKey)
			return nil, apperror.ErrLockTimeout(ctx.Err())
		case <-time.After(s.opts.RetryBackoff):
		}
	}

	s.storeResult(ctx, req.IdempotencyKey, payloadHash, entry)

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("key", req.IdempotencyKey).
		Int("postings", len(entry.Postings)).
		Msg("journal entry committed")

	return entry, nil
}

// commit runs one transactional attempt: lock accounts in ascending id
// order, validate against locked state, append the entry and postings,
// advance balances, record idempotency, and seal the audit chain.
func (s *LedgerServiceImpl) commit(ctx context.Context, req ports.PostEntryRequest, payloadHash string, reversalOf *uuid.UUID, kind domain.AuditKind) (*domain.JournalEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	accounts, err := s.lockAccounts(ctx, dbTx, req.Lines)
	if err != nil {
		return nil, err
	}

	for _, ln := range req.Lines {
		account := accounts[ln.AccountID]
		if account == nil {
			return nil, apperror.ErrAccountNotFound(ln.AccountID.String())
		}
		if !account.IsPostable() {
			return nil, apperror.ErrAccountNotPostable(ln.AccountID.String())
		}
		if account.Currency != ln.Currency {
			return nil, apperror.ErrCurrencyMismatch(account.Currency, ln.Currency)
		}
	}

	now := time.Now().UTC()
	entry := &domain.JournalEntry{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    req.ReferenceID,
		Description:    req.Description,
		Status:         domain.EntryStatusPosted,
		ReversalOf:     reversalOf,
		CreatedAt:      now,
	}
	for _, ln := range req.Lines {
		entry.Postings = append(entry.Postings, domain.Posting{
			ID:        uuid.New(),
			EntryID:   entry.ID,
			AccountID: ln.AccountID,
			Amount:    ln.Amount,
			Currency:  ln.Currency,
		})
	}

	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create entry: %w", err))
	}

	// Balances advance one sequence step per posting, under the account
	// row locks taken above.
	for i := range entry.Postings {
		p := &entry.Postings[i]
		seq, applyErr := s.balanceRepo.Apply(ctx, dbTx, p.AccountID, p.Amount)
		if applyErr != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("apply balance delta: %w", applyErr))
		}
		p.Sequence = seq
	}

	if reversalOf != nil {
		if err := s.entryRepo.MarkReversed(ctx, dbTx, *reversalOf, entry.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperror.ErrEntryAlreadyReversed(reversalOf.String())
			}
			return nil, apperror.ErrDatabaseError(fmt.Errorf("mark reversed: %w", err))
		}
	}

	respJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal entry: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyRecord{
		Key:          req.IdempotencyKey,
		EntryID:      entry.ID,
		PayloadHash:  payloadHash,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("save idempotency record: %w", err))
	}

	last, err := s.auditRepo.LastForUpdate(ctx, dbTx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock audit head: %w", err))
	}
	audit := &domain.AuditRecord{
		Kind:      kind,
		EntryID:   &entry.ID,
		Payload:   respJSON,
		Actor:     req.Actor,
		CreatedAt: now,
	}
	audit.Seal(last)
	if err := s.auditRepo.Append(ctx, dbTx, audit); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append audit record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

// lockAccounts takes FOR UPDATE row locks on every account touched by
// the posting set, always in ascending id order so concurrent entries
// over overlapping account sets cannot deadlock.
func (s *LedgerServiceImpl) lockAccounts(ctx context.Context, dbTx pgx.Tx, lines []domain.PostingInput) (map[uuid.UUID]*domain.Account, error) {
	idSet := make(map[uuid.UUID]struct{}, len(lines))
	for _, ln := range lines {
		idSet[ln.AccountID] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	accounts, err := s.accountRepo.LockForUpdate(ctx, dbTx, ids)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock accounts: %w", err))
	}
	return accounts, nil
}

// awaitInflight polls for the in-flight holder's result until the wait
// budget is spent.
func (s *LedgerServiceImpl) awaitInflight(ctx context.Context, key string) (ports.ReserveState, []byte, error) {
	deadline := time.Now().Add(s.opts.InflightWait)
	for {
		select {
		case <-ctx.Done():
			return 0, nil, apperror.ErrDuplicateInFlight(key)
		case <-time.After(s.opts.PollInterval):
		}

		state, cached, err := s.idempStore.CheckOrReserve(ctx, key, s.opts.InflightTTL)
		if err != nil {
			return 0, nil, apperror.InternalError(fmt.Errorf("idempotency poll: %w", err))
		}
		if state != ports.ReserveInFlight {
			return state, cached, nil
		}
		if time.Now().After(deadline) {
			return 0, nil, apperror.ErrDuplicateInFlight(key)
		}
	}
}

// replayEnvelope deserializes a cached result and enforces payload-hash
// equality before replaying it.
func (s *LedgerServiceImpl) replayEnvelope(data []byte, key, payloadHash string) (*domain.JournalEntry, error) {
	var env idempotencyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	if env.PayloadHash != payloadHash {
		return nil, apperror.ErrIdempotencyConflict(key)
	}
	s.log.Debug().Str("key", key).Msg("replayed cached entry")
	return env.Entry, nil
}

// replayRecord replays a durable idempotency record.
func (s *LedgerServiceImpl) replayRecord(rec *domain.IdempotencyRecord, payloadHash string) (*domain.JournalEntry, error) {
	if rec.PayloadHash != payloadHash {
		return nil, apperror.ErrIdempotencyConflict(rec.Key)
	}
	entry := &domain.JournalEntry{}
	if err := json.Unmarshal(rec.ResponseJSON, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal idempotency record: %w", err))
	}
	return entry, nil
}

// storeResult publishes a committed entry to the cache, replacing the
// in-flight reservation. Best-effort: the durable record already exists.
func (s *LedgerServiceImpl) storeResult(ctx context.Context, key, payloadHash string, entry *domain.JournalEntry) {
	env, err := json.Marshal(idempotencyEnvelope{PayloadHash: payloadHash, Entry: entry})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal idempotency envelope")
		return
	}
	if err := s.idempStore.StoreResult(ctx, key, env, s.opts.Retention); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache committed result")
	}
}

// releaseReservation drops a failed submission's reservation so the
// caller can retry with the same key. Best-effort.
func (s *LedgerServiceImpl) releaseReservation(ctx context.Context, key string) {
	if err := s.idempStore.Release(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency reservation")
	}
}

// postingSetError maps domain validation failures onto coded errors.
func postingSetError(err error) *apperror.AppError {
	switch {
	case errors.Is(err, domain.ErrUnbalancedEntry):
		return apperror.Wrap("LGR_001", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrAmountOverflow):
		return apperror.ErrAmountOverflow()
	default:
		return apperror.ErrInvalidPostingSet(err.Error())
	}
}

// isLockConflict reports whether err is a PostgreSQL serialization
// failure or deadlock, both of which are safe to retry.
func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
