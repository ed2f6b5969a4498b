package domain

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// IdempotencyRecord maps an idempotency key to the committed journal
// entry produced under it. The payload hash distinguishes a retry of the
// same request from an accidental key reuse with a different payload.
type IdempotencyRecord struct {
	Key          string    `json:"key"`
	EntryID      uuid.UUID `json:"entry_id"`
	PayloadHash  string    `json:"payload_hash"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPostingRequest produces a canonical BLAKE2b-256 digest of a posting
// request. Lines are hashed in a normalized order so that semantically
// identical retries hash equally regardless of line ordering.
func HashPostingRequest(referenceID, description string, lines []PostingInput) string {
	sorted := make([]PostingInput, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AccountID != sorted[j].AccountID {
			return sorted[i].AccountID.String() < sorted[j].AccountID.String()
		}
		if sorted[i].Currency != sorted[j].Currency {
			return sorted[i].Currency < sorted[j].Currency
		}
		return sorted[i].Amount < sorted[j].Amount
	})

	h, _ := blake2b.New256(nil)
	h.Write([]byte(referenceID))
	h.Write([]byte{0})
	h.Write([]byte(description))
	for _, ln := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(ln.AccountID.String()))
		h.Write([]byte{'|'})
		h.Write([]byte(ln.Currency))
		h.Write([]byte{'|'})
		var buf [8]byte
		v := uint64(ln.Amount)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
