package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(t *testing.T, n int) []AuditRecord {
	t.Helper()
	records := make([]AuditRecord, 0, n)
	var prev *AuditRecord
	for i := 0; i < n; i++ {
		entryID := uuid.New()
		rec := AuditRecord{
			Sequence:  int64(i + 1),
			Kind:      AuditKindEntryPosted,
			EntryID:   &entryID,
			Payload:   []byte(`{"amount":10000}`),
			Actor:     "payment-service",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		rec.Seal(prev)
		records = append(records, rec)
		prev = &records[len(records)-1]
	}
	return records
}

func TestVerifyChain_Intact(t *testing.T) {
	records := chainOf(t, 5)
	assert.Equal(t, GenesisHash, records[0].PrevHash)
	assert.NoError(t, VerifyChain(records))
}

func TestVerifyChain_TamperedPayload(t *testing.T) {
	records := chainOf(t, 5)
	records[2].Payload = []byte(`{"amount":99999}`)

	err := VerifyChain(records)
	require.ErrorIs(t, err, ErrChainBroken)
}

func TestVerifyChain_RelinkedRecord(t *testing.T) {
	records := chainOf(t, 5)
	// Re-seal a middle record so its own hash is valid but the successor
	// no longer links to it.
	records[2].Payload = []byte(`{"amount":99999}`)
	records[2].Hash = records[2].ComputeHash()

	err := VerifyChain(records)
	require.ErrorIs(t, err, ErrChainBroken)
}

func TestVerifyChain_PartialTrail(t *testing.T) {
	// A contiguous slice out of the middle still verifies: the first
	// record's prev hash points outside the slice.
	records := chainOf(t, 6)
	assert.NoError(t, VerifyChain(records[2:5]))
}

func TestHashPostingRequest_OrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines := []PostingInput{
		{AccountID: a, Amount: 10000, Currency: "USD"},
		{AccountID: b, Amount: -10000, Currency: "USD"},
	}
	reversed := []PostingInput{lines[1], lines[0]}

	assert.Equal(t,
		HashPostingRequest("pay-1", "wallet funding", lines),
		HashPostingRequest("pay-1", "wallet funding", reversed),
	)
}

func TestHashPostingRequest_DistinguishesPayloads(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines := []PostingInput{
		{AccountID: a, Amount: 10000, Currency: "USD"},
		{AccountID: b, Amount: -10000, Currency: "USD"},
	}
	changed := []PostingInput{
		{AccountID: a, Amount: 10001, Currency: "USD"},
		{AccountID: b, Amount: -10001, Currency: "USD"},
	}

	assert.NotEqual(t,
		HashPostingRequest("pay-1", "wallet funding", lines),
		HashPostingRequest("pay-1", "wallet funding", changed),
	)
	assert.NotEqual(t,
		HashPostingRequest("pay-1", "wallet funding", lines),
		HashPostingRequest("pay-2", "wallet funding", lines),
	)
}
