package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// Posting is a single signed amount against one account within a journal
// entry. Positive amounts are debits, negative amounts are credits.
type Posting struct {
	ID        uuid.UUID `json:"id"`
	EntryID   uuid.UUID `json:"entry_id"`
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	// Sequence is the strictly increasing per-account sequence number
	// assigned at commit time. Commit order defines a total order per
	// account, which point-in-time balance queries rely on.
	Sequence int64 `json:"sequence"`
}

// JournalEntry is a balanced set of postings representing one atomic
// financial event. Entries are immutable once posted; corrections are
// expressed as reversing entries, never edits.
type JournalEntry struct {
	ID             uuid.UUID   `json:"id"`
	IdempotencyKey string      `json:"idempotency_key"`
	ReferenceID    string      `json:"reference_id"`
	Description    string      `json:"description"`
	Status         EntryStatus `json:"status"`
	Postings       []Posting   `json:"postings"`
	ReversalOf     *uuid.UUID  `json:"reversal_of,omitempty"`
	ReversedBy     *uuid.UUID  `json:"reversed_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// PostingInput is one (account, signed amount) pair in a posting request,
// before accounts have been resolved and sequences assigned.
type PostingInput struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
}

// ValidatePostingSet enforces the shape invariants that do not require
// account lookups: at least two postings, non-zero amounts, at most one
// posting per account and currency, and a zero signed sum for every
// currency present. Sums are overflow-checked.
func ValidatePostingSet(lines []PostingInput) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: need at least two postings, got %d", ErrInvalidPostingSet, len(lines))
	}

	type slot struct {
		account  uuid.UUID
		currency string
	}
	seen := make(map[slot]struct{}, len(lines))
	sums := make(map[string]int64, 2)
	for _, ln := range lines {
		if ln.AccountID == uuid.Nil {
			return fmt.Errorf("%w: posting without account id", ErrInvalidPostingSet)
		}
		if ln.Amount == 0 {
			return ErrZeroAmountPosting
		}
		s := slot{ln.AccountID, ln.Currency}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: account %s appears twice in %s", ErrDuplicateAccountID, ln.AccountID, ln.Currency)
		}
		seen[s] = struct{}{}
		sum, ok := checkedAdd(sums[ln.Currency], ln.Amount)
		if !ok {
			return ErrAmountOverflow
		}
		sums[ln.Currency] = sum
	}

	for currency, sum := range sums {
		if sum != 0 {
			return fmt.Errorf("%w: %s sums to %d", ErrUnbalancedEntry, currency, sum)
		}
	}
	return nil
}

// CurrencySums returns the signed sum per currency for a posting set.
// Used by tests and reconciliation; assumes the set already validated.
func CurrencySums(postings []Posting) map[string]int64 {
	sums := make(map[string]int64, 2)
	for _, p := range postings {
		sums[p.Currency] += p.Amount
	}
	return sums
}

// NegatedLines returns the exact negation of an entry's postings as a new
// posting-input set, preserving order. Fails on overflow.
func (e *JournalEntry) NegatedLines() ([]PostingInput, error) {
	lines := make([]PostingInput, 0, len(e.Postings))
	for _, p := range e.Postings {
		if p.Amount == math.MinInt64 {
			return nil, ErrAmountOverflow
		}
		lines = append(lines, PostingInput{
			AccountID: p.AccountID,
			Amount:    -p.Amount,
			Currency:  p.Currency,
		})
	}
	return lines, nil
}
