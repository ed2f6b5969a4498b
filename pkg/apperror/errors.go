package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Account Registry (ACC) ----

func ErrInvalidAccountSpec(reason string) *AppError {
	return New("ACC_001", fmt.Sprintf("Invalid account spec: %s", reason), http.StatusBadRequest)
}

func ErrAccountNotFound(id string) *AppError {
	return New("ACC_002", fmt.Sprintf("Account %s not found", id), http.StatusNotFound)
}

func ErrAccountNotPostable(id string) *AppError {
	return New("ACC_003", fmt.Sprintf("Account %s is not active and cannot accept postings", id), http.StatusUnprocessableEntity)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New("ACC_004", fmt.Sprintf("Account status cannot change from %s to %s", from, to), http.StatusUnprocessableEntity)
}

func ErrAccountHierarchyCycle() *AppError {
	return New("ACC_005", "Account parent chain contains a cycle", http.StatusBadRequest)
}

// ---- Journal Entry Engine (LGR) ----

func ErrUnbalancedEntry(currency string, sum int64) *AppError {
	return New("LGR_001", fmt.Sprintf("Postings in %s sum to %d, expected 0", currency, sum), http.StatusUnprocessableEntity)
}

func ErrInvalidPostingSet(reason string) *AppError {
	return New("LGR_002", fmt.Sprintf("Invalid posting set: %s", reason), http.StatusBadRequest)
}

func ErrAmountOverflow() *AppError {
	return New("LGR_003", "Amount arithmetic overflow", http.StatusUnprocessableEntity)
}

func ErrCurrencyMismatch(want, got string) *AppError {
	return New("LGR_004", fmt.Sprintf("Currency mismatch: want %s, got %s", want, got), http.StatusUnprocessableEntity)
}

func ErrEntryNotFound(id string) *AppError {
	return New("LGR_005", fmt.Sprintf("Journal entry %s not found", id), http.StatusNotFound)
}

func ErrEntryAlreadyReversed(id string) *AppError {
	return New("LGR_006", fmt.Sprintf("Journal entry %s is already reversed", id), http.StatusConflict)
}

// ---- Currency Conversion (FX) ----

func ErrRateUnavailable(from, to string) *AppError {
	return New("FX_001", fmt.Sprintf("No exchange rate available for %s/%s", from, to), http.StatusUnprocessableEntity)
}

// ---- Idempotency (IDEM) ----

func ErrDuplicateInFlight(key string) *AppError {
	return New("IDEM_001", fmt.Sprintf("A submission with idempotency key %q is already in flight", key), http.StatusConflict)
}

func ErrIdempotencyConflict(key string) *AppError {
	return New("IDEM_002", fmt.Sprintf("Idempotency key %q was already used with a different payload", key), http.StatusConflict)
}

// ---- Audit Log (AUD) ----

func ErrAuditChainBroken(seq int64) *AppError {
	return New("AUD_001", fmt.Sprintf("Audit hash chain broken at sequence %d", seq), http.StatusInternalServerError)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a generic request validation error.
func Validation(message string) *AppError {
	return New("LGR_002", message, http.StatusBadRequest)
}
