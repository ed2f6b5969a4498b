package handler

import (
	"ledger-core/internal/adapter/http/dto"
	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"
	"ledger-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReconciliationHandler handles reconciliation endpoints.
type ReconciliationHandler struct {
	reconSvc ports.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconSvc ports.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconSvc: reconSvc}
}

// Run handles POST /api/v1/reconciliation/run. The statement lines are
// submitted inline; the run is read-only with respect to the ledger.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req dto.ReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	lines := make([]domain.StatementLine, 0, len(req.Lines))
	for _, ln := range req.Lines {
		lines = append(lines, domain.StatementLine{
			ID:          ln.ID,
			ReferenceID: ln.ReferenceID,
			Amount:      ln.Amount,
			Currency:    ln.Currency,
			Date:        ln.Date,
			Source:      ln.Source,
		})
	}

	results, err := h.reconSvc.Reconcile(c.Request.Context(), domain.ReconciliationWindow{
		From: req.From,
		To:   req.To,
	}, lines)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.ReconciliationResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, dto.ReconciliationResultResponse{
			EntryID:     uuidString(r.EntryID),
			LineID:      r.LineID,
			Status:      string(r.Status),
			Currency:    r.Currency,
			Discrepancy: r.Discrepancy,
			Detail:      r.Detail,
		})
	}
	response.OK(c, out)
}
