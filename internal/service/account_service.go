package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	balanceRepo ports.BalanceRepository
	auditRepo   ports.AuditRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	balanceRepo ports.BalanceRepository,
	auditRepo ports.AuditRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
		auditRepo:   auditRepo,
		transactor:  transactor,
		log:         log,
	}
}

// CreateAccount provisions a new account with a zero-initialized balance
// row and records the creation in the audit chain.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*domain.Account, error) {
	if req.Name == "" {
		return nil, apperror.ErrInvalidAccountSpec("name is required")
	}
	if !req.Type.Valid() {
		return nil, apperror.ErrInvalidAccountSpec(fmt.Sprintf("unknown account type %q", req.Type))
	}
	if len(req.Currency) != 3 {
		return nil, apperror.ErrInvalidAccountSpec(fmt.Sprintf("currency %q is not an ISO 4217 code", req.Currency))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.New(),
		Name:      req.Name,
		Type:      req.Type,
		Currency:  req.Currency,
		Status:    domain.AccountStatusActive,
		ParentID:  req.ParentID,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.ParentID != nil {
		parent, err := s.accountRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load parent: %w", err))
		}
		if parent == nil {
			return nil, apperror.ErrInvalidAccountSpec(fmt.Sprintf("parent account %s does not exist", req.ParentID))
		}
		err = domain.ValidateParentChain(account.ID, req.ParentID, func(id uuid.UUID) (*domain.Account, bool) {
			a, lookupErr := s.accountRepo.GetByID(ctx, id)
			if lookupErr != nil || a == nil {
				return nil, false
			}
			return a, true
		})
		if err != nil {
			return nil, apperror.ErrAccountHierarchyCycle()
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create account: %w", err))
	}
	if err := s.balanceRepo.Init(ctx, dbTx, account.ID, account.Currency); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("init balance: %w", err))
	}

	payload, err := json.Marshal(account)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal account: %w", err))
	}
	if err := s.appendAudit(ctx, dbTx, domain.AuditKindAccountCreated, account.ID, payload, req.Actor, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("type", string(account.Type)).
		Str("currency", account.Currency).
		Msg("account created")

	return account, nil
}

// GetAccount fetches one account by id.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(id.String())
	}
	return account, nil
}

// ListAccounts returns the full chart of accounts.
func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// SetStatus applies a lifecycle transition. Closed is terminal; history
// against a closed account remains readable forever.
func (s *AccountServiceImpl) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, actor string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(id.String())
	}
	if !account.CanTransitionTo(status) {
		return nil, apperror.ErrInvalidStatusTransition(string(account.Status), string(status))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.UpdateStatus(ctx, dbTx, id, status); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update status: %w", err))
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(map[string]string{
		"from": string(account.Status),
		"to":   string(status),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal transition: %w", err))
	}
	if err := s.appendAudit(ctx, dbTx, domain.AuditKindAccountStatus, id, payload, actor, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", id.String()).
		Str("from", string(account.Status)).
		Str("to", string(status)).
		Msg("account status changed")

	account.Status = status
	account.UpdatedAt = now
	return account, nil
}

// appendAudit seals a new audit record against the current chain head and
// appends it within the caller's transaction. The head is locked so that
// concurrent writers serialize on the chain.
func (s *AccountServiceImpl) appendAudit(ctx context.Context, dbTx pgx.Tx, kind domain.AuditKind, accountID uuid.UUID, payload []byte, actor string, at time.Time) error {
	last, err := s.auditRepo.LastForUpdate(ctx, dbTx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock audit head: %w", err))
	}
	rec := &domain.AuditRecord{
		Kind:      kind,
		AccountID: &accountID,
		Payload:   payload,
		Actor:     actor,
		CreatedAt: at,
	}
	rec.Seal(last)
	if err := s.auditRepo.Append(ctx, dbTx, rec); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("append audit record: %w", err))
	}
	return nil
}
