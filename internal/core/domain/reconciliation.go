package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatementLine is one line of an externally supplied statement (bank
// statement, processor report) to reconcile against internal entries.
type StatementLine struct {
	ID          string    `json:"id"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	Source      string    `json:"source,omitempty"`
}

// MatchStatus classifies one reconciliation result.
type MatchStatus string

const (
	MatchStatusMatched           MatchStatus = "matched"
	MatchStatusFlagged           MatchStatus = "flagged"
	MatchStatusUnmatchedInternal MatchStatus = "unmatched_internal"
	MatchStatusUnmatchedExternal MatchStatus = "unmatched_external"
)

// ReconciliationResult pairs an internal journal entry with an external
// statement line. Discrepancies are data, never errors: a flagged result
// carries the signed difference (internal - external) for review.
type ReconciliationResult struct {
	EntryID     *uuid.UUID  `json:"entry_id,omitempty"`
	LineID      string      `json:"line_id,omitempty"`
	Status      MatchStatus `json:"status"`
	Currency    string      `json:"currency,omitempty"`
	Discrepancy int64       `json:"discrepancy"`
	Detail      string      `json:"detail,omitempty"`
}

// ReconciliationWindow bounds the internal entries considered by one
// reconciliation run.
type ReconciliationWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
