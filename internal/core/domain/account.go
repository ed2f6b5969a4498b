package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"

	// Domain tags used by upstream services when provisioning accounts.
	AccountTypeUserWallet AccountType = "user_wallet"
	AccountTypeOperating  AccountType = "operating"
	AccountTypeEscrow     AccountType = "escrow"
	AccountTypeFXGainLoss AccountType = "fx_gain_loss"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense,
		AccountTypeUserWallet, AccountTypeOperating, AccountTypeEscrow, AccountTypeFXGainLoss:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

// Account is one row in the chart of accounts. Accounts are never
// physically deleted; a closed account is retained for history.
type Account struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Type      AccountType       `json:"type"`
	Currency  string            `json:"currency"`
	Status    AccountStatus     `json:"status"`
	ParentID  *uuid.UUID        `json:"parent_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsPostable reports whether the journal entry engine may accept new
// postings against this account.
func (a *Account) IsPostable() bool {
	return a.Status == AccountStatusActive
}

// CanTransitionTo validates a status change. Closed is terminal.
func (a *Account) CanTransitionTo(next AccountStatus) bool {
	if !next.Valid() || a.Status == next {
		return false
	}
	return a.Status != AccountStatusClosed
}

// ValidateParentChain walks the parent chain of candidate starting at
// parentID using the supplied lookup and fails with ErrHierarchyCycle if
// the chain revisits a node or leads back to candidate. Parents are ids,
// not pointers, so the walk is the only cycle guard.
func ValidateParentChain(candidate uuid.UUID, parentID *uuid.UUID, lookup func(uuid.UUID) (*Account, bool)) error {
	seen := map[uuid.UUID]struct{}{candidate: {}}
	for parentID != nil {
		id := *parentID
		if _, dup := seen[id]; dup {
			return ErrHierarchyCycle
		}
		seen[id] = struct{}{}
		parent, ok := lookup(id)
		if !ok {
			// Missing parent is reported separately by the caller.
			return nil
		}
		parentID = parent.ParentID
	}
	return nil
}
