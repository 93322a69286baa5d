package handlers

import (
	"github.com/gin-gonic/gin"

	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/infrastructure/http/v1/dto"
)

// CorteHandler handles reconciliation endpoints.
type CorteHandler struct {
	*BaseHandler
	service *reconciliation.Service
}

// NewCorteHandler creates a new corte handler.
func NewCorteHandler(base *BaseHandler, service *reconciliation.Service) *CorteHandler {
	return &CorteHandler{BaseHandler: base, service: service}
}

// Create closes a reconciliation period for the account. The response
// carries the discrepancy; a non-zero value is still a 201.
func (h *CorteHandler) Create(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.CorteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actual, ok := h.ParseMoney(c, req.ActualBalance, "actualBalance")
	if !ok {
		return
	}

	corte, err := h.service.Reconcile(c.Request.Context(), reconciliation.Input{
		AccountID:     accountID,
		PeriodEnd:     req.PeriodEnd,
		ActualBalance: actual,
		Notes:         req.Notes,
		CreatedBy:     h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromCorte(corte))
}

// Get returns a corte by id.
func (h *CorteHandler) Get(c *gin.Context) {
	corteID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	corte, err := h.service.Get(c.Request.Context(), corteID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCorte(corte))
}

// History returns an account's cortes, newest first.
func (h *CorteHandler) History(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 0)
	cortes, err := h.service.History(c.Request.Context(), accountID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := dto.FromCortes(cortes)
	h.OKList(c, out, len(out))
}
