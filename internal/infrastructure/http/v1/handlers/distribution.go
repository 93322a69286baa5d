package handlers

import (
	"github.com/gin-gonic/gin"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/distribution"
	"flowvault/internal/infrastructure/http/v1/dto"
)

// DistributionHandler handles payment distribution endpoints.
type DistributionHandler struct {
	*BaseHandler
	engine *distribution.Engine
}

// NewDistributionHandler creates a new distribution handler.
func NewDistributionHandler(base *BaseHandler, engine *distribution.Engine) *DistributionHandler {
	return &DistributionHandler{BaseHandler: base, engine: engine}
}

// Distribute splits an inbound payment by percentage rules. Omitting rules
// applies the engine's default rule set.
func (h *DistributionHandler) Distribute(c *gin.Context) {
	var req dto.DistributeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batchID, ok := h.OptionalID(c, req.BatchID, "batchId")
	if !ok {
		return
	}
	amount, ok := h.ParseMoney(c, req.SourceAmount, "sourceAmount")
	if !ok {
		return
	}

	var rules distribution.RuleSet
	if len(req.Rules) > 0 {
		parsed := make([]distribution.SplitRule, 0, len(req.Rules))
		for _, r := range req.Rules {
			pct, ok := h.ParseMoney(c, r.Percent, "percent")
			if !ok {
				return
			}
			parsed = append(parsed, distribution.SplitRule{AccountCode: r.AccountCode, Percent: pct})
		}
		var err error
		rules, err = distribution.NewRuleSet(parsed)
		if err != nil {
			h.Error(c, err)
			return
		}
	}

	in := distribution.DistributeInput{
		BatchID:      batchID,
		SourceAmount: amount,
		Currency:     req.Currency,
		SourceRef:    req.SourceRef,
		Rules:        rules,
		CreatedBy:    h.Actor(c),
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	batch, err := h.engine.Distribute(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromBatch(batch))
}

// DistributeFixed applies a payment with caller-computed fixed shares.
func (h *DistributionHandler) DistributeFixed(c *gin.Context) {
	var req dto.DistributeFixedRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batchID, ok := h.OptionalID(c, req.BatchID, "batchId")
	if !ok {
		return
	}
	amount, ok := h.ParseMoney(c, req.SourceAmount, "sourceAmount")
	if !ok {
		return
	}

	shares := make([]distribution.Share, 0, len(req.Shares))
	for _, s := range req.Shares {
		accountID, err := id.Parse(s.AccountID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "shares.accountId"))
			return
		}
		shareAmount, ok := h.ParseMoney(c, s.Amount, "shares.amount")
		if !ok {
			return
		}
		shares = append(shares, distribution.Share{AccountID: accountID, Amount: shareAmount})
	}

	in := distribution.DistributeFixedInput{
		BatchID:      batchID,
		SourceAmount: amount,
		Currency:     req.Currency,
		SourceRef:    req.SourceRef,
		Shares:       shares,
		CreatedBy:    h.Actor(c),
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	batch, err := h.engine.DistributeFixed(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromBatch(batch))
}

// Get returns a distribution batch with its splits.
func (h *DistributionHandler) Get(c *gin.Context) {
	batchID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	batch, err := h.engine.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}
