package dto

import (
	"time"

	"flowvault/internal/domain/transfer"
)

// TransferRequest moves funds between two accounts.
type TransferRequest struct {
	TransferID      string     `json:"transferId"`
	OriginAccountID string     `json:"originAccountId" binding:"required"`
	DestAccountID   string     `json:"destAccountId" binding:"required"`
	Amount          string     `json:"amount" binding:"required"`
	ExchangeRate    *string    `json:"exchangeRate"`
	Concept         string     `json:"concept"`
	OccurredAt      *time.Time `json:"occurredAt"`
}

// TransferResponse describes a completed transfer.
type TransferResponse struct {
	ID              string    `json:"id"`
	OriginAccountID string    `json:"originAccountId"`
	DestAccountID   string    `json:"destAccountId"`
	Amount          string    `json:"amount"`
	ExchangeRate    *string   `json:"exchangeRate,omitempty"`
	ConvertedAmount string    `json:"convertedAmount"`
	Concept         string    `json:"concept,omitempty"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"createdBy"`
	OccurredAt      time.Time `json:"occurredAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FromTransfer maps a transfer to its response shape.
func FromTransfer(t *transfer.Transfer) TransferResponse {
	out := TransferResponse{
		ID:              t.ID.String(),
		OriginAccountID: t.OriginAccountID.String(),
		DestAccountID:   t.DestAccountID.String(),
		Amount:          t.Amount.String(),
		ConvertedAmount: t.ConvertedAmount.String(),
		Concept:         t.Concept,
		Status:          string(t.Status),
		CreatedBy:       t.CreatedBy,
		OccurredAt:      t.OccurredAt,
		CreatedAt:       t.CreatedAt,
	}
	if t.ExchangeRate != nil {
		rate := t.ExchangeRate.String()
		out.ExchangeRate = &rate
	}
	return out
}

// FromTransfers maps a transfer slice.
func FromTransfers(transfers []transfer.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, FromTransfer(&transfers[i]))
	}
	return out
}
