package domain

import "errors"

// Sentinel validation errors raised by the domain layer. The service layer
// maps them onto coded apperror values before they leave the core.
var (
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrAmountOverflow     = errors.New("amount overflow")
	ErrUnbalancedEntry    = errors.New("postings do not sum to zero per currency")
	ErrInvalidPostingSet  = errors.New("invalid posting set")
	ErrHierarchyCycle     = errors.New("account parent chain contains a cycle")
	ErrStatusTransition   = errors.New("invalid account status transition")
	ErrChainBroken        = errors.New("audit hash chain broken")
	ErrZeroAmountPosting  = errors.New("posting amount must be non-zero")
	ErrDuplicateAccountID = errors.New("duplicate account in posting set")
)
