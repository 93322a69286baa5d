package dto

import (
	"time"

	"flowvault/internal/domain/distribution"
)

// SplitRuleRequest is one percentage destination of a distribution.
type SplitRuleRequest struct {
	AccountCode string `json:"accountCode" binding:"required"`
	Percent     string `json:"percent" binding:"required"`
}

// DistributeRequest splits an inbound payment across accounts.
type DistributeRequest struct {
	BatchID      string             `json:"batchId"`
	SourceAmount string             `json:"sourceAmount" binding:"required"`
	Currency     string             `json:"currency" binding:"required"`
	SourceRef    string             `json:"sourceRef"`
	Rules        []SplitRuleRequest `json:"rules"`
	OccurredAt   *time.Time         `json:"occurredAt"`
}

// FixedShareRequest is one fixed-amount destination.
type FixedShareRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

// DistributeFixedRequest applies a payment with pre-computed shares.
type DistributeFixedRequest struct {
	BatchID      string              `json:"batchId"`
	SourceAmount string              `json:"sourceAmount" binding:"required"`
	Currency     string              `json:"currency" binding:"required"`
	SourceRef    string              `json:"sourceRef"`
	Shares       []FixedShareRequest `json:"shares" binding:"required"`
	OccurredAt   *time.Time          `json:"occurredAt"`
}

// SplitResponse is one computed share of a batch.
type SplitResponse struct {
	AccountID string `json:"accountId"`
	Percent   string `json:"percent"`
	Amount    string `json:"amount"`
}

// BatchResponse describes a distribution batch.
type BatchResponse struct {
	ID           string          `json:"id"`
	SourceAmount string          `json:"sourceAmount"`
	Currency     string          `json:"currency"`
	SourceRef    string          `json:"sourceRef,omitempty"`
	Splits       []SplitResponse `json:"splits"`
	Status       string          `json:"status"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FromBatch maps a batch to its response shape.
func FromBatch(b *distribution.Batch) BatchResponse {
	splits := make([]SplitResponse, 0, len(b.Splits))
	for _, s := range b.Splits {
		splits = append(splits, SplitResponse{
			AccountID: s.AccountID.String(),
			Percent:   s.Percent.String(),
			Amount:    s.Amount.String(),
		})
	}
	return BatchResponse{
		ID:           b.ID.String(),
		SourceAmount: b.SourceAmount.String(),
		Currency:     b.Currency,
		SourceRef:    b.SourceRef,
		Splits:       splits,
		Status:       string(b.Status),
		CreatedBy:    b.CreatedBy,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
