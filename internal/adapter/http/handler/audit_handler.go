package handler

import (
	"time"

	"ledger-core/internal/adapter/http/dto"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"
	"ledger-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler handles audit trail endpoints.
type AuditHandler struct {
	auditSvc ports.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditSvc ports.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// Trail handles GET /api/v1/audit/trail. Optional query parameters
// entry_id, account_id, from, and to narrow the export.
func (h *AuditHandler) Trail(c *gin.Context) {
	var filter ports.AuditTrailFilter

	if raw := c.Query("entry_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("entry_id is not a valid uuid"))
			return
		}
		filter.EntryID = &id
	}
	if raw := c.Query("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("account_id is not a valid uuid"))
			return
		}
		filter.AccountID = &id
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperror.Validation("from must be an RFC 3339 timestamp"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperror.Validation("to must be an RFC 3339 timestamp"))
			return
		}
		filter.To = &to
	}

	records, err := h.auditSvc.Trail(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AuditRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.AuditRecordResponse{
			Sequence:  r.Sequence,
			Kind:      string(r.Kind),
			EntryID:   uuidString(r.EntryID),
			AccountID: uuidString(r.AccountID),
			Payload:   string(r.Payload),
			Actor:     r.Actor,
			PrevHash:  r.PrevHash,
			Hash:      r.Hash,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.OK(c, out)
}

// Verify handles GET /api/v1/audit/verify. Walks the full hash chain
// and reports the first broken link, if any.
func (h *AuditHandler) Verify(c *gin.Context) {
	if err := h.auditSvc.VerifyChain(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"chain": "intact"})
}
