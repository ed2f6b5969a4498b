package handler

import (
	"strconv"
	"time"

	"ledger-core/internal/adapter/http/dto"
	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"
	"ledger-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles chart-of-accounts endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
	balanceSvc ports.BalanceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService, balanceSvc ports.BalanceService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, balanceSvc: balanceSvc}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var parentID *uuid.UUID
	if req.ParentID != nil {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			response.Error(c, apperror.Validation("parent_id is not a valid uuid"))
			return
		}
		parentID = &id
	}

	account, err := h.accountSvc.CreateAccount(c.Request.Context(), ports.CreateAccountRequest{
		Name:     req.Name,
		Type:     domain.AccountType(req.Type),
		Currency: req.Currency,
		ParentID: parentID,
		Metadata: req.Metadata,
		Actor:    actorFrom(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toAccountResponse(account))
}

// Get handles GET /api/v1/accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id is not a valid uuid"))
		return
	}

	account, err := h.accountSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(account))
}

// List handles GET /api/v1/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountSvc.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	response.OK(c, out)
}

// UpdateStatus handles PATCH /api/v1/accounts/:id/status.
func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id is not a valid uuid"))
		return
	}

	var req dto.UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, err := h.accountSvc.SetStatus(c.Request.Context(), id, domain.AccountStatus(req.Status), actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(account))
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
// Optional query parameters as_of (RFC 3339) and as_of_sequence address a
// point-in-time balance; they are mutually exclusive.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id is not a valid uuid"))
		return
	}

	var q ports.BalanceQuery
	if raw := c.Query("as_of"); raw != "" {
		asOf, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperror.Validation("as_of must be an RFC 3339 timestamp"))
			return
		}
		q.AsOfTime = &asOf
	}
	if raw := c.Query("as_of_sequence"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seq < 0 {
			response.Error(c, apperror.Validation("as_of_sequence must be a non-negative integer"))
			return
		}
		q.AsOfSequence = &seq
	}

	balance, err := h.balanceSvc.GetBalance(c.Request.Context(), id, q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID: balance.AccountID.String(),
		Amount:    balance.Amount,
		Currency:  balance.Currency,
		Sequence:  balance.Sequence,
		UpdatedAt: balance.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func toAccountResponse(a *domain.Account) dto.AccountResponse {
	var parentID *string
	if a.ParentID != nil {
		s := a.ParentID.String()
		parentID = &s
	}
	return dto.AccountResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  a.Currency,
		Status:    string(a.Status),
		ParentID:  parentID,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}
