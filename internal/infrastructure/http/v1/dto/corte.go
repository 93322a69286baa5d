package dto

import (
	"time"

	"flowvault/internal/domain/reconciliation"
)

// CorteRequest closes a reconciliation period for one account.
type CorteRequest struct {
	PeriodEnd     time.Time `json:"periodEnd" binding:"required"`
	ActualBalance string    `json:"actualBalance" binding:"required"`
	Notes         string    `json:"notes"`
}

// CorteResponse describes a recorded corte.
type CorteResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"accountId"`
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	OpeningBalance  string    `json:"openingBalance"`
	TotalCredits    string    `json:"totalCredits"`
	TotalDebits     string    `json:"totalDebits"`
	ComputedBalance string    `json:"computedBalance"`
	ActualBalance   string    `json:"actualBalance"`
	Discrepancy     string    `json:"discrepancy"`
	HasDiscrepancy  bool      `json:"hasDiscrepancy"`
	Notes           string    `json:"notes,omitempty"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FromCorte maps a corte to its response shape.
func FromCorte(c *reconciliation.Corte) CorteResponse {
	return CorteResponse{
		ID:              c.ID.String(),
		AccountID:       c.AccountID.String(),
		PeriodStart:     c.PeriodStart,
		PeriodEnd:       c.PeriodEnd,
		OpeningBalance:  c.OpeningBalance.String(),
		TotalCredits:    c.TotalCredits.String(),
		TotalDebits:     c.TotalDebits.String(),
		ComputedBalance: c.ComputedBalance.String(),
		ActualBalance:   c.ActualBalance.String(),
		Discrepancy:     c.Discrepancy.String(),
		HasDiscrepancy:  c.HasDiscrepancy(),
		Notes:           c.Notes,
		CreatedBy:       c.CreatedBy,
		CreatedAt:       c.CreatedAt,
	}
}

// FromCortes maps a corte slice.
func FromCortes(cortes []reconciliation.Corte) []CorteResponse {
	out := make([]CorteResponse, 0, len(cortes))
	for i := range cortes {
		out = append(out, FromCorte(&cortes[i]))
	}
	return out
}
