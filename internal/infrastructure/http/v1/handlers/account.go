package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"flowvault/internal/core/apperror"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/domain/projection"
	"flowvault/internal/infrastructure/http/v1/dto"
)

// AccountHandler handles account registry and posting endpoints.
type AccountHandler struct {
	*BaseHandler
	registry  *account.Registry
	ledger    *ledger.Service
	projector *projection.Projector
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, registry *account.Registry, led *ledger.Service, projector *projection.Projector) *AccountHandler {
	return &AccountHandler{
		BaseHandler: base,
		registry:    registry,
		ledger:      led,
		projector:   projector,
	}
}

// Create registers a new account.
func (h *AccountHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	acc := account.NewAccount(req.Code, req.Name, req.Currency, account.Kind(req.Kind))
	if err := h.registry.CreateAccount(ctx, acc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromAccount(*acc))
}

// Get returns one account by id.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	acc, err := h.registry.Get(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(*acc))
}

// GetByCode returns one account by its stable code.
func (h *AccountHandler) GetByCode(c *gin.Context) {
	acc, err := h.registry.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(*acc))
}

// List returns all accounts. Archived accounts are included only with
// ?archived=true.
func (h *AccountHandler) List(c *gin.Context) {
	includeArchived := c.Query("archived") == "true"

	accounts, err := h.registry.List(c.Request.Context(), includeArchived)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.FromAccount(a))
	}
	h.OKList(c, out, len(out))
}

// Archive marks an account as archived.
func (h *AccountHandler) Archive(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.Archive(c.Request.Context(), accountID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Movements returns the account's movement history.
func (h *AccountHandler) Movements(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	filter := ledger.HistoryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 0),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err == nil {
			filter.Since = &since
		}
	}
	if raw := c.Query("sourceType"); raw != "" {
		st := ledger.SourceType(raw)
		filter.SourceType = &st
	}

	movements, err := h.ledger.HistoryFor(c.Request.Context(), accountID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := dto.FromMovements(movements)
	h.OKList(c, out, len(out))
}

// PostExpense records an outflow movement on the account.
func (h *AccountHandler) PostExpense(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.PostExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movementID, ok := h.OptionalID(c, req.MovementID, "movementId")
	if !ok {
		return
	}
	amount, ok := h.ParseMoney(c, req.Amount, "amount")
	if !ok {
		return
	}

	in := account.ExpenseInput{
		MovementID: movementID,
		AccountID:  accountID,
		Amount:     amount,
		Concept:    req.Concept,
		Category:   req.Category,
		CreatedBy:  h.Actor(c),
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	m, err := h.registry.PostExpense(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(*m))
}

// PostIncome records an inflow movement on the account.
func (h *AccountHandler) PostIncome(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.PostIncomeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movementID, ok := h.OptionalID(c, req.MovementID, "movementId")
	if !ok {
		return
	}
	amount, ok := h.ParseMoney(c, req.Amount, "amount")
	if !ok {
		return
	}

	in := account.IncomeInput{
		MovementID: movementID,
		AccountID:  accountID,
		Amount:     amount,
		Concept:    req.Concept,
		Source:     req.Source,
		CreatedBy:  h.Actor(c),
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	m, err := h.registry.PostIncome(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(*m))
}

// Turnover sums credits and debits for the account over (from, to]. With no
// bounds the period runs from account creation to now.
func (h *AccountHandler) Turnover(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	acc, err := h.registry.Get(ctx, accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	from := acc.CreatedAt
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from timestamp").WithDetail("value", raw))
			return
		}
		from = parsed
	}
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to timestamp").WithDetail("value", raw))
			return
		}
		to = parsed
	}

	turnover, err := h.ledger.SumSince(ctx, accountID, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.TurnoverResponse{
		AccountID: accountID.String(),
		From:      from,
		To:        to,
		Credits:   turnover.Credits.String(),
		Debits:    turnover.Debits.String(),
		Net:       turnover.Net().String(),
	})
}

// Balance returns the cached balance; with ?verify=true the ledger is folded
// from scratch and drift reported.
func (h *AccountHandler) Balance(c *gin.Context) {
	accountID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if c.Query("verify") == "true" {
		drift, err := h.projector.Verify(ctx, accountID)
		if err != nil {
			h.Error(c, err)
			return
		}
		inSync := drift.InSync()
		h.OK(c, dto.BalanceResponse{
			AccountID:  accountID.String(),
			Cached:     drift.Cached.String(),
			Recomputed: drift.Recomputed.String(),
			InSync:     &inSync,
		})
		return
	}

	balance, err := h.projector.CurrentBalance(ctx, accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BalanceResponse{
		AccountID: accountID.String(),
		Cached:    balance.String(),
	})
}
