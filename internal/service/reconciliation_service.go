package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"

	"github.com/rs/zerolog"
)

// ReconciliationOptions tunes the matching tolerances.
type ReconciliationOptions struct {
	// AmountTolerance is the largest absolute amount difference, in minor
	// units, still treated as a match.
	AmountTolerance int64
	// DateTolerance is how far a statement line's date may drift from the
	// entry's posting time in a tolerance match.
	DateTolerance time.Duration
}

// ReconciliationServiceImpl implements ports.ReconciliationService. A
// run never mutates the ledger: discrepancies are reported, not fixed.
type ReconciliationServiceImpl struct {
	entryRepo ports.EntryRepository
	opts      ReconciliationOptions
	log       zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(entryRepo ports.EntryRepository, opts ReconciliationOptions, log zerolog.Logger) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{entryRepo: entryRepo, opts: opts, log: log}
}

// Reconcile matches external statement lines against the journal entries
// committed inside the window. Matching runs in two passes: exact
// reference-id pairing first, then amount-and-date pairing within the
// configured tolerances. Whatever remains on either side is reported as
// unmatched.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, window domain.ReconciliationWindow, lines []domain.StatementLine) ([]domain.ReconciliationResult, error) {
	if !window.To.After(window.From) {
		return nil, apperror.Validation("reconciliation window end must be after start")
	}

	entries, err := s.entryRepo.ListInWindow(ctx, window.From, window.To)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list entries: %w", err))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	byRef := make(map[string]*domain.JournalEntry, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.ReferenceID != "" {
			byRef[e.ReferenceID] = e
		}
	}

	consumed := make(map[int]bool, len(entries))
	results := make([]domain.ReconciliationResult, 0, len(lines))

	// Pass 1: reference-id matches. A reference hit with an amount
	// difference is flagged, not silently dropped.
	remaining := make([]domain.StatementLine, 0, len(lines))
	for _, line := range lines {
		entry := byRef[line.ReferenceID]
		if line.ReferenceID == "" || entry == nil {
			remaining = append(remaining, line)
			continue
		}
		idx := entryIndex(entries, entry)
		if consumed[idx] {
			remaining = append(remaining, line)
			continue
		}
		consumed[idx] = true
		results = append(results, s.pair(entry, line, "reference match"))
	}

	// Pass 2: amount and date within tolerance, preferring an exact
	// amount hit over a tolerated one.
	unmatchedLines := make([]domain.StatementLine, 0, len(remaining))
	for _, line := range remaining {
		idx := s.findByAmount(entries, consumed, line)
		if idx < 0 {
			unmatchedLines = append(unmatchedLines, line)
			continue
		}
		consumed[idx] = true
		results = append(results, s.pair(&entries[idx], line, "amount match"))
	}

	for _, line := range unmatchedLines {
		results = append(results, domain.ReconciliationResult{
			LineID:   line.ID,
			Status:   domain.MatchStatusUnmatchedExternal,
			Currency: line.Currency,
			Detail:   "no internal entry found",
		})
	}
	for i := range entries {
		if consumed[i] {
			continue
		}
		results = append(results, domain.ReconciliationResult{
			EntryID:  &entries[i].ID,
			Status:   domain.MatchStatusUnmatchedInternal,
			Detail:   "no statement line found",
			Currency: primaryCurrency(&entries[i]),
		})
	}

	s.log.Info().
		Int("entries", len(entries)).
		Int("lines", len(lines)).
		Int("results", len(results)).
		Msg("reconciliation run complete")

	return results, nil
}

// pair builds the result for one matched entry/line pair. The signed
// discrepancy is internal minus external; a non-zero discrepancy inside
// the amount tolerance still flags the pair for review.
func (s *ReconciliationServiceImpl) pair(entry *domain.JournalEntry, line domain.StatementLine, detail string) domain.ReconciliationResult {
	diff := entryAmount(entry, line.Currency) - line.Amount
	status := domain.MatchStatusMatched
	if diff != 0 {
		status = domain.MatchStatusFlagged
		detail = fmt.Sprintf("%s with amount discrepancy", detail)
	}
	return domain.ReconciliationResult{
		EntryID:     &entry.ID,
		LineID:      line.ID,
		Status:      status,
		Currency:    line.Currency,
		Discrepancy: diff,
		Detail:      detail,
	}
}

// findByAmount returns the index of the best unconsumed entry for line,
// or -1. Exact amount hits win over tolerated ones; ties go to the
// earliest entry.
func (s *ReconciliationServiceImpl) findByAmount(entries []domain.JournalEntry, consumed map[int]bool, line domain.StatementLine) int {
	best := -1
	for i := range entries {
		if consumed[i] {
			continue
		}
		e := &entries[i]
		amount := entryAmount(e, line.Currency)
		if amount == 0 {
			continue
		}
		diff := amount - line.Amount
		if abs(diff) > s.opts.AmountTolerance {
			continue
		}
		dateDrift := e.CreatedAt.Sub(line.Date)
		if dateDrift < 0 {
			dateDrift = -dateDrift
		}
		if dateDrift > s.opts.DateTolerance {
			continue
		}
		if diff == 0 {
			return i
		}
		if best < 0 {
			best = i
		}
	}
	return best
}

func entryIndex(entries []domain.JournalEntry, e *domain.JournalEntry) int {
	for i := range entries {
		if entries[i].ID == e.ID {
			return i
		}
	}
	return -1
}

// entryAmount is the entry's externally visible amount in a currency:
// the sum of its debit postings there. Postings sum to zero overall, so
// the debit side alone carries the magnitude.
func entryAmount(e *domain.JournalEntry, currency string) int64 {
	var sum int64
	for _, p := range e.Postings {
		if p.Currency == currency && p.Amount > 0 {
			sum += p.Amount
		}
	}
	return sum
}

// primaryCurrency is the first posting currency of an entry, used when a
// result has no statement line to take the currency from.
func primaryCurrency(e *domain.JournalEntry) string {
	if len(e.Postings) == 0 {
		return ""
	}
	return e.Postings[0].Currency
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
