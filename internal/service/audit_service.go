package service

import (
	"context"
	"fmt"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuditServiceImpl implements ports.AuditService.
type AuditServiceImpl struct {
	auditRepo ports.AuditRepository
	log       zerolog.Logger
}

// NewAuditService creates a new AuditServiceImpl.
func NewAuditService(auditRepo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{auditRepo: auditRepo, log: log}
}

// Trail exports audit records matching the filter, oldest first. A
// filtered trail is a contiguous slice of the chain only when the filter
// is a pure time window; callers verifying integrity should use
// VerifyChain instead.
func (s *AuditServiceImpl) Trail(ctx context.Context, filter ports.AuditTrailFilter) ([]domain.AuditRecord, error) {
	records, err := s.auditRepo.Trail(ctx, filter)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load audit trail: %w", err))
	}
	return records, nil
}

// VerifyChain walks the entire audit log from the genesis anchor and
// fails on the first record whose content hash or predecessor link does
// not hold.
func (s *AuditServiceImpl) VerifyChain(ctx context.Context) error {
	records, err := s.auditRepo.All(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("load audit log: %w", err))
	}

	prev := domain.GenesisHash
	for i := range records {
		r := &records[i]
		if r.PrevHash != prev || r.ComputeHash() != r.Hash {
			s.log.Error().
				Int64("sequence", r.Sequence).
				Msg("audit chain verification failed")
			return apperror.ErrAuditChainBroken(r.Sequence)
		}
		prev = r.Hash
	}

	s.log.Info().Int("records", len(records)).Msg("audit chain verified")
	return nil
}
