package dto

import (
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
)

// AccountResponse describes one account.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Kind      string    `json:"kind"`
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	Archived  bool      `json:"archived"`

	// ClosedThrough is the latest reconciled period end; movements may only
	// be dated after it. Absent until the first corte.
	ClosedThrough *time.Time `json:"closedThrough,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromAccount maps an account to its response shape. Balances travel as
// strings so clients never touch binary floats.
func FromAccount(a account.Account) AccountResponse {
	var closedThrough *time.Time
	if !a.ClosedThrough.IsZero() {
		closedThrough = &a.ClosedThrough
	}
	return AccountResponse{
		ID:        a.ID.String(),
		Code:      a.Code,
		Name:      a.Name,
		Currency:  a.Currency,
		Kind:      string(a.Kind),
		Balance:   a.Balance.String(),
		Version:   a.Version,
		Archived:  a.Archived,

		ClosedThrough: closedThrough,

		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// CreateAccountRequest for registering new accounts.
type CreateAccountRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
}

// MovementResponse describes one ledger movement.
type MovementResponse struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	Direction  string    `json:"direction"`
	Amount     string    `json:"amount"`
	OccurredAt time.Time `json:"occurredAt"`
	Concept    string    `json:"concept"`
	SourceType string    `json:"sourceType"`
	SourceRef  string    `json:"sourceRef,omitempty"`
	BatchID    string    `json:"batchId,omitempty"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromMovement maps a movement to its response shape.
func FromMovement(m ledger.Movement) MovementResponse {
	out := MovementResponse{
		ID:         m.ID.String(),
		AccountID:  m.AccountID.String(),
		Direction:  string(m.Direction),
		Amount:     m.Amount.String(),
		OccurredAt: m.OccurredAt,
		Concept:    m.Concept,
		SourceType: string(m.SourceType),
		SourceRef:  m.SourceRef,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
	if !id.IsNil(m.BatchID) {
		out.BatchID = m.BatchID.String()
	}
	return out
}

// FromMovements maps a movement slice.
func FromMovements(movements []ledger.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, FromMovement(m))
	}
	return out
}

// PostExpenseRequest records an outflow on one account.
type PostExpenseRequest struct {
	MovementID string     `json:"movementId"`
	Amount     string     `json:"amount" binding:"required"`
	Concept    string     `json:"concept" binding:"required"`
	Category   string     `json:"category"`
	OccurredAt *time.Time `json:"occurredAt"`
}

// PostIncomeRequest records an inflow on one account.
type PostIncomeRequest struct {
	MovementID string     `json:"movementId"`
	Amount     string     `json:"amount" binding:"required"`
	Concept    string     `json:"concept" binding:"required"`
	Source     string     `json:"source"`
	OccurredAt *time.Time `json:"occurredAt"`
}

// TurnoverResponse reports credit/debit totals for an account over a period.
type TurnoverResponse struct {
	AccountID string    `json:"accountId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Credits   string    `json:"credits"`
	Debits    string    `json:"debits"`
	Net       string    `json:"net"`
}

// BalanceResponse reports cached and recomputed balances for an account.
type BalanceResponse struct {
	AccountID  string `json:"accountId"`
	Cached     string `json:"cached"`
	Recomputed string `json:"recomputed,omitempty"`
	InSync     *bool  `json:"inSync,omitempty"`
}
