package handlers

import (
	"github.com/gin-gonic/gin"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/transfer"
	"flowvault/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles inter-account transfer endpoints.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// Create executes a transfer between two accounts.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transferID, ok := h.OptionalID(c, req.TransferID, "transferId")
	if !ok {
		return
	}
	originID, err := id.Parse(req.OriginAccountID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "originAccountId"))
		return
	}
	destID, err := id.Parse(req.DestAccountID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "destAccountId"))
		return
	}
	amount, ok := h.ParseMoney(c, req.Amount, "amount")
	if !ok {
		return
	}

	var rate *types.Money
	if req.ExchangeRate != nil {
		parsed, ok := h.ParseMoney(c, *req.ExchangeRate, "exchangeRate")
		if !ok {
			return
		}
		rate = &parsed
	}

	in := transfer.Input{
		TransferID:      transferID,
		OriginAccountID: originID,
		DestAccountID:   destID,
		Amount:          amount,
		ExchangeRate:    rate,
		Concept:         req.Concept,
		CreatedBy:       h.Actor(c),
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	t, err := h.service.Transfer(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromTransfer(t))
}

// Get returns a transfer by id.
func (h *TransferHandler) Get(c *gin.Context) {
	transferID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Get(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(t))
}

// ListByAccount returns transfers touching an account, newest first.
func (h *TransferHandler) ListByAccount(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 0)
	transfers, err := h.service.ListByAccount(c.Request.Context(), accountID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := dto.FromTransfers(transfers)
	h.OKList(c, out, len(out))
}
