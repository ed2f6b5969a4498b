package dto

import "time"

// CreateAccountRequest is the request body for account provisioning.
type CreateAccountRequest struct {
	Name     string            `json:"name" binding:"required,min=1,max=200"`
	Type     string            `json:"type" binding:"required"`
	Currency string            `json:"currency" binding:"required,currency"`
	ParentID *string           `json:"parent_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UpdateAccountStatusRequest is the request body for status transitions.
type UpdateAccountStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AccountResponse is the response body for account reads.
type AccountResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	ParentID  *string           `json:"parent_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// PostingLine is one signed posting in an entry submission.
type PostingLine struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required,currency"`
}

// PostEntryRequest is the request body for posting a journal entry. The
// idempotency key may also arrive in the Idempotency-Key header, which
// takes precedence.
type PostEntryRequest struct {
	IdempotencyKey string        `json:"idempotency_key,omitempty" binding:"max=200"`
	ReferenceID    string        `json:"reference_id,omitempty" binding:"max=100"`
	Description    string        `json:"description,omitempty" binding:"max=500"`
	Lines          []PostingLine `json:"lines" binding:"required,min=2,dive"`
}

// PostingResponse is one posting in an entry response.
type PostingResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Sequence  int64  `json:"sequence"`
}

// EntryResponse is the response body for journal entry reads.
type EntryResponse struct {
	ID          string            `json:"id"`
	ReferenceID string            `json:"reference_id,omitempty"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Postings    []PostingResponse `json:"postings"`
	ReversalOf  *string           `json:"reversal_of,omitempty"`
	ReversedBy  *string           `json:"reversed_by,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

// BalanceResponse is the response body for balance queries.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Sequence  int64  `json:"sequence"`
	UpdatedAt string `json:"updated_at"`
}

// TransferRequest is the request body for a (possibly cross-currency)
// transfer between two accounts.
type TransferRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=200"`
	FromAccountID  string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID    string `json:"to_account_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Currency       string `json:"currency" binding:"required,currency"`
	ToCurrency     string `json:"to_currency,omitempty" binding:"omitempty,currency"`
	ReferenceID    string `json:"reference_id,omitempty" binding:"max=100"`
	Description    string `json:"description,omitempty" binding:"max=500"`
}

// TransferResponse wraps the committed entry with conversion details.
type TransferResponse struct {
	Entry           EntryResponse `json:"entry"`
	Rate            string        `json:"rate,omitempty"`
	ConvertedAmount int64         `json:"converted_amount,omitempty"`
}

// StatementLineRequest is one external statement line submitted for
// reconciliation.
type StatementLineRequest struct {
	ID          string    `json:"id" binding:"required,max=100"`
	ReferenceID string    `json:"reference_id,omitempty" binding:"max=100"`
	Amount      int64     `json:"amount" binding:"required"`
	Currency    string    `json:"currency" binding:"required,currency"`
	Date        time.Time `json:"date" binding:"required"`
	Source      string    `json:"source,omitempty" binding:"max=100"`
}

// ReconciliationRequest is the request body for a reconciliation run.
type ReconciliationRequest struct {
	From  time.Time              `json:"from" binding:"required"`
	To    time.Time              `json:"to" binding:"required"`
	Lines []StatementLineRequest `json:"lines" binding:"required,dive"`
}

// ReconciliationResultResponse is one row of a reconciliation report.
type ReconciliationResultResponse struct {
	EntryID     *string `json:"entry_id,omitempty"`
	LineID      string  `json:"line_id,omitempty"`
	Status      string  `json:"status"`
	Currency    string  `json:"currency,omitempty"`
	Discrepancy int64   `json:"discrepancy"`
	Detail      string  `json:"detail,omitempty"`
}

// AuditRecordResponse is one exported audit record.
type AuditRecordResponse struct {
	Sequence  int64   `json:"sequence"`
	Kind      string  `json:"kind"`
	EntryID   *string `json:"entry_id,omitempty"`
	AccountID *string `json:"account_id,omitempty"`
	Payload   string  `json:"payload"`
	Actor     string  `json:"actor,omitempty"`
	PrevHash  string  `json:"prev_hash"`
	Hash      string  `json:"hash"`
	CreatedAt string  `json:"created_at"`
}
