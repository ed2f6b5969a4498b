package ports

import (
	"context"
	"time"

	"ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReserveState is the outcome of an idempotency check-or-reserve.
type ReserveState int

const (
	// ReserveAcquired means no prior submission exists; the caller holds
	// the in-flight reservation and must commit or release it.
	ReserveAcquired ReserveState = iota
	// ReserveFound means a committed result already exists.
	ReserveFound
	// ReserveInFlight means another submission holds the reservation.
	ReserveInFlight
)

// IdempotencyStore is the fast-path reservation layer. A reservation is
// an in-flight marker with a short TTL; a committed result replaces the
// marker and is retained for the configured retention window.
type IdempotencyStore interface {
	// CheckOrReserve atomically inspects key and reserves it when free.
	// result is non-nil only for ReserveFound.
	CheckOrReserve(ctx context.Context, key string, inflightTTL time.Duration) (ReserveState, []byte, error)
	// StoreResult replaces the reservation with the committed response.
	StoreResult(ctx context.Context, key string, response []byte, retention time.Duration) error
	// Release drops the reservation after a failed submission so the
	// caller can retry with the same key.
	Release(ctx context.Context, key string) error
}

// RateSource supplies exchange rates for currency conversion.
type RateSource interface {
	// Rate returns the from→to exchange rate effective at asOf.
	Rate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
}

// --- Service Ports (Business Logic) ---

// PostEntryRequest holds validated input for posting a journal entry.
type PostEntryRequest struct {
	IdempotencyKey string
	ReferenceID    string
	Description    string
	Actor          string
	Lines          []domain.PostingInput
}

// LedgerService is the write path: validated, atomic, idempotent
// commits of balanced posting sets, and reversals through the same
// pipeline.
type LedgerService interface {
	PostEntry(ctx context.Context, req PostEntryRequest) (*domain.JournalEntry, error)
	ReverseEntry(ctx context.Context, entryID uuid.UUID, actor string) (*domain.JournalEntry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.JournalEntry, error)
}

// BalanceQuery addresses a point-in-time balance read. Zero value means
// "current cached balance". AsOfTime and AsOfSequence are exclusive.
type BalanceQuery struct {
	AsOfTime     *time.Time
	AsOfSequence *int64
}

// BalanceService is the read path over materialized balances.
type BalanceService interface {
	GetBalance(ctx context.Context, accountID uuid.UUID, q BalanceQuery) (*domain.Balance, error)
}

// CreateAccountRequest holds input for account provisioning.
type CreateAccountRequest struct {
	Name     string
	Type     domain.AccountType
	Currency string
	ParentID *uuid.UUID
	Metadata map[string]string
	Actor    string
}

// AccountService maintains the chart of accounts.
type AccountService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, actor string) (*domain.Account, error)
}

// AuditService exports and verifies the tamper-evident audit trail.
type AuditService interface {
	Trail(ctx context.Context, filter AuditTrailFilter) ([]domain.AuditRecord, error)
	VerifyChain(ctx context.Context) error
}

// ReconciliationService compares committed entries against external
// statement lines. Read-only with respect to the ledger.
type ReconciliationService interface {
	Reconcile(ctx context.Context, window domain.ReconciliationWindow, lines []domain.StatementLine) ([]domain.ReconciliationResult, error)
}

// Conversion is the result of one currency conversion.
type Conversion struct {
	Converted domain.Money
	Rate      decimal.Decimal
}

// ConversionService converts amounts across currencies and builds the
// balanced posting sets for multi-currency transfers.
type ConversionService interface {
	Convert(ctx context.Context, amount domain.Money, toCurrency string, asOf time.Time) (*Conversion, error)
	// BuildTransferLines returns a posting set moving amount from one
	// account into another of a different currency, routed through the
	// designated FX gain/loss accounts so every currency subset sums to
	// zero.
	BuildTransferLines(ctx context.Context, fromAccount, toAccount uuid.UUID, amount domain.Money, toCurrency string, asOf time.Time) ([]domain.PostingInput, *Conversion, error)
}
