package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New("LGR_001", "unbalanced", http.StatusUnprocessableEntity)
	assert.Equal(t, "[LGR_001] unbalanced", err.Error())

	wrapped := Wrap("SYS_001", "db down", http.StatusInternalServerError, fmt.Errorf("conn refused"))
	assert.Equal(t, "[SYS_001] db down: conn refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := InternalError(inner)
	assert.ErrorIs(t, err, inner)
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrInvalidAccountSpec("currency missing"), "ACC_001", http.StatusBadRequest},
		{ErrAccountNotFound("a-1"), "ACC_002", http.StatusNotFound},
		{ErrAccountNotPostable("a-1"), "ACC_003", http.StatusUnprocessableEntity},
		{ErrInvalidStatusTransition("closed", "active"), "ACC_004", http.StatusUnprocessableEntity},
		{ErrAccountHierarchyCycle(), "ACC_005", http.StatusBadRequest},
		{ErrUnbalancedEntry("USD", 100), "LGR_001", http.StatusUnprocessableEntity},
		{ErrInvalidPostingSet("fewer than two postings"), "LGR_002", http.StatusBadRequest},
		{ErrAmountOverflow(), "LGR_003", http.StatusUnprocessableEntity},
		{ErrCurrencyMismatch("USD", "EUR"), "LGR_004", http.StatusUnprocessableEntity},
		{ErrEntryNotFound("e-1"), "LGR_005", http.StatusNotFound},
		{ErrEntryAlreadyReversed("e-1"), "LGR_006", http.StatusConflict},
		{ErrRateUnavailable("USD", "EUR"), "FX_001", http.StatusUnprocessableEntity},
		{ErrDuplicateInFlight("k1"), "IDEM_001", http.StatusConflict},
		{ErrIdempotencyConflict("k1"), "IDEM_002", http.StatusConflict},
		{ErrAuditChainBroken(7), "AUD_001", http.StatusInternalServerError},
		{ErrLockTimeout(errors.New("timeout")), "SYS_002", http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		require.NotNil(t, tc.err)
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}
