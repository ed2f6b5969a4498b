package domain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// AuditKind identifies what a tamper-evident audit record describes.
type AuditKind string

const (
	AuditKindEntryPosted    AuditKind = "entry_posted"
	AuditKindEntryReversed  AuditKind = "entry_reversed"
	AuditKindAccountCreated AuditKind = "account_created"
	AuditKindAccountStatus  AuditKind = "account_status_changed"
)

// GenesisHash anchors the first record of the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AuditRecord is one link of the append-only, hash-chained audit log.
// Each record carries the full payload of the mutation it describes, a
// BLAKE2b-256 content hash, and the hash of its immediate predecessor,
// so any alteration breaks the chain from that point on.
type AuditRecord struct {
	Sequence  int64      `json:"sequence"`
	Kind      AuditKind  `json:"kind"`
	EntryID   *uuid.UUID `json:"entry_id,omitempty"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Payload   []byte     `json:"payload"`
	Actor     string     `json:"actor"`
	PrevHash  string     `json:"prev_hash"`
	Hash      string     `json:"hash"`
	CreatedAt time.Time  `json:"created_at"`
}

// ComputeHash returns the chain hash for a record: BLAKE2b-256 over the
// previous hash and every content field. Sequence is excluded because it
// is assigned by storage after hashing; linkage is carried by PrevHash.
func (r *AuditRecord) ComputeHash() string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(r.PrevHash))
	h.Write([]byte{0})
	h.Write([]byte(r.Kind))
	h.Write([]byte{0})
	if r.EntryID != nil {
		h.Write([]byte(r.EntryID.String()))
	}
	h.Write([]byte{0})
	if r.AccountID != nil {
		h.Write([]byte(r.AccountID.String()))
	}
	h.Write([]byte{0})
	h.Write(r.Payload)
	h.Write([]byte{0})
	h.Write([]byte(r.Actor))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(r.CreatedAt.UTC().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Seal links the record to prev and stamps its own hash. prev may be nil
// for the first record of the chain.
func (r *AuditRecord) Seal(prev *AuditRecord) {
	if prev == nil {
		r.PrevHash = GenesisHash
	} else {
		r.PrevHash = prev.Hash
	}
	r.Hash = r.ComputeHash()
}

// VerifyChain checks an ordered run of audit records end-to-end: every
// record's stored hash must match its recomputed hash, and every record
// must link to its predecessor. The first record may link to GenesisHash
// or to an earlier record outside the slice (partial trail exports).
func VerifyChain(records []AuditRecord) error {
	for i := range records {
		r := &records[i]
		if r.ComputeHash() != r.Hash {
			return fmt.Errorf("%w: record %d content hash mismatch", ErrChainBroken, r.Sequence)
		}
		if i > 0 && r.PrevHash != records[i-1].Hash {
			return fmt.Errorf("%w: record %d does not link to %d", ErrChainBroken, r.Sequence, records[i-1].Sequence)
		}
	}
	return nil
}
