package handler

import (
	"time"

	"ledger-core/internal/adapter/http/dto"
	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"
	"ledger-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderIdempotencyKey takes precedence over the body field.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderActor identifies the caller for audit attribution.
	HeaderActor = "X-Actor"

	defaultActor = "api"
)

// LedgerHandler handles journal entry and transfer endpoints.
type LedgerHandler struct {
	ledgerSvc     ports.LedgerService
	conversionSvc ports.ConversionService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService, conversionSvc ports.ConversionService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc, conversionSvc: conversionSvc}
}

// PostEntry handles POST /api/v1/entries.
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	lines := make([]domain.PostingInput, 0, len(req.Lines))
	for _, ln := range req.Lines {
		accountID, err := uuid.Parse(ln.AccountID)
		if err != nil {
			response.Error(c, apperror.Validation("line account_id is not a valid uuid"))
			return
		}
		lines = append(lines, domain.PostingInput{
			AccountID: accountID,
			Amount:    ln.Amount,
			Currency:  ln.Currency,
		})
	}

	entry, err := h.ledgerSvc.PostEntry(c.Request.Context(), ports.PostEntryRequest{
		IdempotencyKey: idempotencyKeyFrom(c, req.IdempotencyKey),
		ReferenceID:    req.ReferenceID,
		Description:    req.Description,
		Actor:          actorFrom(c),
		Lines:          lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// GetEntry handles GET /api/v1/entries/:id.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("entry id is not a valid uuid"))
		return
	}

	entry, err := h.ledgerSvc.GetEntry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toEntryResponse(entry))
}

// ReverseEntry handles POST /api/v1/entries/:id/reverse.
func (h *LedgerHandler) ReverseEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("entry id is not a valid uuid"))
		return
	}

	entry, err := h.ledgerSvc.ReverseEntry(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// Transfer handles POST /api/v1/transfers. A transfer is sugar over
// PostEntry: the posting set is built by the conversion service and
// committed through the same idempotent pipeline.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		response.Error(c, apperror.Validation("from_account_id is not a valid uuid"))
		return
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		response.Error(c, apperror.Validation("to_account_id is not a valid uuid"))
		return
	}

	toCurrency := req.ToCurrency
	if toCurrency == "" {
		toCurrency = req.Currency
	}

	lines, conv, err := h.conversionSvc.BuildTransferLines(
		c.Request.Context(),
		fromID, toID,
		domain.NewMoney(req.Amount, req.Currency),
		toCurrency,
		time.Now().UTC(),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.ledgerSvc.PostEntry(c.Request.Context(), ports.PostEntryRequest{
		IdempotencyKey: idempotencyKeyFrom(c, req.IdempotencyKey),
		ReferenceID:    req.ReferenceID,
		Description:    req.Description,
		Actor:          actorFrom(c),
		Lines:          lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		Entry:           toEntryResponse(entry),
		Rate:            conv.Rate.String(),
		ConvertedAmount: conv.Converted.Amount,
	})
}

// idempotencyKeyFrom resolves the idempotency key, header first.
func idempotencyKeyFrom(c *gin.Context, bodyKey string) string {
	if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
		return key
	}
	return bodyKey
}

// actorFrom resolves the audit actor from the request headers.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader(HeaderActor); actor != "" {
		return actor
	}
	return defaultActor
}

func toEntryResponse(e *domain.JournalEntry) dto.EntryResponse {
	postings := make([]dto.PostingResponse, 0, len(e.Postings))
	for _, p := range e.Postings {
		postings = append(postings, dto.PostingResponse{
			ID:        p.ID.String(),
			AccountID: p.AccountID.String(),
			Amount:    p.Amount,
			Currency:  p.Currency,
			Sequence:  p.Sequence,
		})
	}
	return dto.EntryResponse{
		ID:          e.ID.String(),
		ReferenceID: e.ReferenceID,
		Description: e.Description,
		Status:      string(e.Status),
		Postings:    postings,
		ReversalOf:  uuidString(e.ReversalOf),
		ReversedBy:  uuidString(e.ReversedBy),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
