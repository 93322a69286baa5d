package transfer

import (
	"context"
	"fmt"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
	"flowvault/pkg/logger"
)

// Service executes transfers through the registry's atomic-apply path.
type Service struct {
	registry  *account.Registry
	transfers Repository
}

// NewService creates a transfer service.
func NewService(registry *account.Registry, transfers Repository) *Service {
	return &Service{registry: registry, transfers: transfers}
}

// Input describes one transfer request.
type Input struct {
	// TransferID is the caller-supplied idempotency key. Generated when nil.
	TransferID      id.ID
	OriginAccountID id.ID
	DestAccountID   id.ID
	Amount          types.Money

	// ExchangeRate is required when the two accounts hold different
	// currencies and forbidden otherwise.
	ExchangeRate *types.Money

	Concept    string
	OccurredAt time.Time
	CreatedBy  string
}

// Transfer debits the origin and credits the destination atomically. The
// origin balance is checked before anything is written; on insufficient
// funds nothing is persisted and INSUFFICIENT_FUNDS is returned. Retrying
// an already-committed transfer id returns the stored transfer without
// touching any balance.
func (s *Service) Transfer(ctx context.Context, in Input) (*Transfer, error) {
	if id.IsNil(in.OriginAccountID) || id.IsNil(in.DestAccountID) {
		return nil, apperror.NewValidation("origin and destination accounts are required")
	}
	if in.OriginAccountID == in.DestAccountID {
		return nil, apperror.NewValidation("cannot transfer to the same account")
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("transfer amount must be positive")
	}

	// Replay of a committed transfer id is a no-op success. The check runs
	// before the funds pre-check: the first submission already debited the
	// origin, so the remaining balance says nothing about the retry.
	if !id.IsNil(in.TransferID) {
		existing, err := s.transfers.Get(ctx, in.TransferID)
		if err == nil {
			logger.Info(ctx, "transfer replayed", "transfer_id", existing.ID)
			return existing, nil
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}
	}

	origin, err := s.registry.Get(ctx, in.OriginAccountID)
	if err != nil {
		return nil, err
	}
	dest, err := s.registry.Get(ctx, in.DestAccountID)
	if err != nil {
		return nil, err
	}

	converted, err := convertedAmount(in.Amount, in.ExchangeRate, origin, dest)
	if err != nil {
		return nil, err
	}

	// Pre-check: cheap rejection before constructing the pair. The atomic
	// apply re-checks under the transaction, so a concurrent debit cannot
	// sneak the balance below zero between here and the commit.
	if !origin.Kind.AllowsNegative() && origin.Balance.LessThan(in.Amount) {
		return nil, apperror.NewInsufficientFunds(
			origin.ID.String(),
			in.Amount.String(),
			origin.Balance.String(),
		)
	}

	transferID := in.TransferID
	if id.IsNil(transferID) {
		transferID = id.New()
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	t := &Transfer{
		ID:              transferID,
		OriginAccountID: origin.ID,
		DestAccountID:   dest.ID,
		Amount:          in.Amount,
		ExchangeRate:    in.ExchangeRate,
		ConvertedAmount: converted,
		Concept:         in.Concept,
		Status:          StatusCompleted,
		CreatedBy:       in.CreatedBy,
		OccurredAt:      occurredAt,
		CreatedAt:       time.Now().UTC(),
	}

	now := time.Now().UTC()
	pair := []ledger.Movement{
		{
			ID:         id.Derive(transferID, "debit"),
			AccountID:  origin.ID,
			Direction:  ledger.DirectionDebit,
			Amount:     in.Amount,
			OccurredAt: occurredAt,
			Concept:    in.Concept,
			SourceType: ledger.SourceTransfer,
			SourceRef:  transferID.String(),
			CreatedBy:  in.CreatedBy,
			CreatedAt:  now,
		},
		{
			ID:         id.Derive(transferID, "credit"),
			AccountID:  dest.ID,
			Direction:  ledger.DirectionCredit,
			Amount:     converted,
			OccurredAt: occurredAt,
			Concept:    in.Concept,
			SourceType: ledger.SourceTransfer,
			SourceRef:  transferID.String(),
			CreatedBy:  in.CreatedBy,
			CreatedAt:  now,
		},
	}

	err = s.registry.ApplyMovements(ctx, pair, func(ctx context.Context) error {
		return s.transfers.Create(ctx, t)
	})
	if err != nil {
		if apperror.IsInsufficientFunds(err) {
			// Nothing was persisted; the rejected record accompanies the
			// error so callers can report what was attempted.
			t.Status = StatusRejectedInsufficientFunds
			return t, err
		}
		return nil, err
	}

	logger.Info(ctx, "transfer completed",
		"transfer_id", t.ID,
		"origin", origin.Code,
		"dest", dest.Code,
		"amount", t.Amount,
		"converted", t.ConvertedAmount,
	)
	return t, nil
}

// Get returns a transfer by id.
func (s *Service) Get(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.transfers.Get(ctx, transferID)
}

// ListByAccount returns transfers touching the account, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]Transfer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.transfers.ListByAccount(ctx, accountID, limit)
}

// convertedAmount applies the exchange rate for cross-currency transfers.
// Same-currency transfers must not carry a rate.
func convertedAmount(amount types.Money, rate *types.Money, origin, dest *account.Account) (types.Money, error) {
	if origin.Currency == dest.Currency {
		if rate != nil {
			return types.Money{}, apperror.NewValidation("exchange rate given for same-currency transfer")
		}
		return amount, nil
	}
	if rate == nil {
		return types.Money{}, apperror.NewValidation(
			fmt.Sprintf("exchange rate required for %s to %s transfer", origin.Currency, dest.Currency),
		)
	}
	if !rate.IsPositive() {
		return types.Money{}, apperror.NewValidation("exchange rate must be positive")
	}
	return types.RoundCurrency(amount.Mul(*rate), dest.Currency), nil
}
