package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is the materialized signed sum of all postings to an account.
// It is derived state: the postings are authoritative, the balance row is
// a cache maintained incrementally at commit time. Sequence increases by
// one per posting applied and backs optimistic concurrency for readers.
type Balance struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Sequence  int64     `json:"sequence"`
	UpdatedAt time.Time `json:"updated_at"`
}
