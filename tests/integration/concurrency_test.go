package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

// The suite below hammers the posting pipeline from many goroutines.
// The Redis reservation serializes duplicate submissions and the
// transactor serializes commits, so every run must end in exactly one
// committed entry per idempotency key and an intact audit chain.

func TestConcurrent_SameKeyPosts(t *testing.T) {
	app := newTestApp(t)

	cash := app.createAccount(t, "Cash", "asset", "USD")
	revenue := app.createAccount(t, "Revenue", "revenue", "USD")

	const workers = 8
	body := entryBody("burst-001", line(cash, 5000, "USD"), line(revenue, -5000, "USD"))

	type outcome struct {
		code    int
		entryID string
	}
	results := make([]outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, resp := app.do(t, http.MethodPost, "/api/v1/entries", body, nil)
			results[i] = outcome{code: code}
			if code == http.StatusCreated {
				results[i].entryID = resp["data"].(map[string]interface{})["id"].(string)
			}
		}(i)
	}
	wg.Wait()

	// Every submission either committed or replayed the committed entry,
	// and they all agree on which entry that is.
	var entryID string
	for i, r := range results {
		require.Equal(t, http.StatusCreated, r.code, "worker %d", i)
		if entryID == "" {
			entryID = r.entryID
		}
		assert.Equal(t, entryID, r.entryID, "worker %d", i)
	}

	// Exactly one entry was committed and it applied exactly once.
	entries, err := app.entries.ListInWindow(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, float64(5000), app.balance(t, cash))
	assert.Equal(t, float64(-5000), app.balance(t, revenue))
}

func TestConcurrent_DistinctEntriesOverSharedAccounts(t *testing.T) {
	app := newTestApp(t)

	cash := app.createAccount(t, "Cash", "asset", "USD")
	revenue := app.createAccount(t, "Revenue", "revenue", "USD")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := entryBody(fmt.Sprintf("load-%03d", i),
				line(cash, 100, "USD"), line(revenue, -100, "USD"))
			code, resp := app.do(t, http.MethodPost, "/api/v1/entries", body, nil)
			assert.Equal(t, http.StatusCreated, code, "worker %d: %v", i, resp)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, float64(workers*100), app.balance(t, cash))
	assert.Equal(t, float64(-workers*100), app.balance(t, revenue))

	entries, err := app.entries.ListInWindow(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, workers)

	// Interleaved commits must still produce a linear, intact chain.
	code, resp := app.do(t, http.MethodGet, "/api/v1/audit/verify", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "intact", resp["data"].(map[string]interface{})["chain"])
}

func TestConcurrent_Reversals(t *testing.T) {
	app := newTestApp(t)

	cash := app.createAccount(t, "Cash", "asset", "USD")
	revenue := app.createAccount(t, "Revenue", "revenue", "USD")

	code, resp := app.do(t, http.MethodPost, "/api/v1/entries",
		entryBody("rev-race-001", line(cash, 5000, "USD"), line(revenue, -5000, "USD")), nil)
	require.Equal(t, http.StatusCreated, code)
	entryID := resp["data"].(map[string]interface{})["id"].(string)

	const workers = 6
	type outcome struct {
		code       int
		reversalID string
	}
	results := make([]outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, resp := app.do(t, http.MethodPost, "/api/v1/entries/"+entryID+"/reverse", nil, nil)
			results[i] = outcome{code: code}
			if code == http.StatusCreated {
				results[i].reversalID = resp["data"].(map[string]interface{})["id"].(string)
			}
		}(i)
	}
	wg.Wait()

	// Racing reversals either replay the one reversal entry or observe
	// the original as already reversed. Never both outcomes on one
	// worker, never a second reversal.
	var reversalID string
	created := 0
	for i, r := range results {
		switch r.code {
		case http.StatusCreated:
			created++
			if reversalID == "" {
				reversalID = r.reversalID
			}
			assert.Equal(t, reversalID, r.reversalID, "worker %d", i)
		case http.StatusConflict:
			// Late arrival, original already reversed.
		default:
			t.Errorf("worker %d: unexpected status %d", i, r.code)
		}
	}
	require.GreaterOrEqual(t, created, 1, "at least one reversal must commit or replay")

	origUUID := mustParseUUID(t, entryID)
	assert.Equal(t, 1, app.entries.countReversalsOf(origUUID))
	assert.Equal(t, float64(0), app.balance(t, cash))
	assert.Equal(t, float64(0), app.balance(t, revenue))

	code, resp = app.do(t, http.MethodGet, "/api/v1/audit/verify", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "intact", resp["data"].(map[string]interface{})["chain"])
}
