package distribution

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

// Engine computes per-account splits for inbound payments and applies them
// through the registry's atomic path. A partial split landing in only some
// of the destination accounts is never observable.
type Engine struct {
	registry *account.Registry
	batches  Repository
	defaults RuleSet
}

// NewEngine creates a distribution engine. The default rule set is applied
// when a call does not carry its own; it must already be validated.
func NewEngine(registry *account.Registry, batches Repository, defaults RuleSet) *Engine {
	return &Engine{
		registry: registry,
		batches:  batches,
		defaults: defaults,
	}
}

// DistributeInput describes one inbound payment to split.
type DistributeInput struct {
	// BatchID is the caller-supplied idempotency key for the whole batch.
	// Generated when nil; callers that may retry should supply their own.
	BatchID      id.ID
	SourceAmount types.Money
	Currency     string
	SourceRef    string
	// Rules overrides the engine default when non-empty.
	Rules      RuleSet
	OccurredAt time.Time
	CreatedBy  string
}

// Distribute splits the payment and commits one credit movement per
// destination account in a single atomic apply.
//
// Rounding: every split but the last is rounded to the currency precision;
// the last split is the exact remainder, so the batch always sums to the
// source amount regardless of rounding.
func (e *Engine) Distribute(ctx context.Context, in DistributeInput) (*Batch, error) {
	if !in.SourceAmount.IsPositive() {
		return nil, apperror.NewValidation("source amount must be positive")
	}
	if in.Currency == "" {
		return nil, apperror.NewValidation("currency is required")
	}
	rules := in.Rules
	if rules.Empty() {
		rules = e.defaults
	}
	if rules.Empty() {
		return nil, apperror.NewInvalidSplitConfig("no split rules configured")
	}

	batchID := in.BatchID
	if id.IsNil(batchID) {
		batchID = id.New()
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	splits, err := e.computeSplits(ctx, in.SourceAmount, in.Currency, rules)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &Batch{
		ID:           batchID,
		SourceAmount: in.SourceAmount,
		Currency:     in.Currency,
		SourceRef:    in.SourceRef,
		Splits:       splits,
		Status:       StatusPending,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	movements := e.movementsFor(batch, occurredAt)

	err = e.registry.ApplyMovements(ctx, movements, func(ctx context.Context) error {
		return e.batches.UpdateStatus(ctx, batch.ID, StatusCommitted)
	})
	if err != nil {
		batch.Status = StatusFailed
		if markErr := e.batches.UpdateStatus(ctx, batch.ID, StatusFailed); markErr != nil {
			logger.Error(ctx, "failed to mark batch failed", "batch_id", batch.ID, "error", markErr)
		}
		return batch, err
	}

	batch.Status = StatusCommitted
	logger.Info(ctx, "payment distributed",
		"batch_id", batch.ID,
		"amount", batch.SourceAmount,
		"splits", len(batch.Splits),
		"source_ref", batch.SourceRef,
	)
	return batch, nil
}

// DistributeFixed applies pre-computed amounts rather than percentages; used
// for proportional payment application where the share of each account comes
// from a recorded operation instead of a percentage policy. Amounts must sum
// to the source amount exactly.
func (e *Engine) DistributeFixed(ctx context.Context, in DistributeFixedInput) (*Batch, error) {
	if !in.SourceAmount.IsPositive() {
		return nil, apperror.NewValidation("source amount must be positive")
	}
	if len(in.Shares) == 0 {
		return nil, apperror.NewValidation("no shares supplied")
	}
	total := types.Zero()
	for _, s := range in.Shares {
		if !s.Amount.IsPositive() {
			return nil, apperror.NewValidation("share amounts must be positive")
		}
		total = total.Add(s.Amount)
	}
	if !total.Equal(in.SourceAmount) {
		return nil, apperror.NewValidation(
			fmt.Sprintf("shares sum to %s, want %s", total, in.SourceAmount),
		)
	}

	batchID := in.BatchID
	if id.IsNil(batchID) {
		batchID = id.New()
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	splits := make([]Split, 0, len(in.Shares))
	for _, s := range in.Shares {
		acc, err := e.registry.Get(ctx, s.AccountID)
		if err != nil {
			return nil, err
		}
		if acc.Currency != in.Currency {
			return nil, apperror.NewValidation(
				fmt.Sprintf("account %s holds %s, payment is %s", acc.Code, acc.Currency, in.Currency),
			)
		}
		splits = append(splits, Split{AccountID: s.AccountID, Amount: s.Amount})
	}

	now := time.Now().UTC()
	batch := &Batch{
		ID:           batchID,
		SourceAmount: in.SourceAmount,
		Currency:     in.Currency,
		SourceRef:    in.SourceRef,
		Splits:       splits,
		Status:       StatusPending,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	movements := e.movementsFor(batch, occurredAt)
	err := e.registry.ApplyMovements(ctx, movements, func(ctx context.Context) error {
		return e.batches.UpdateStatus(ctx, batch.ID, StatusCommitted)
	})
	if err != nil {
		batch.Status = StatusFailed
		if markErr := e.batches.UpdateStatus(ctx, batch.ID, StatusFailed); markErr != nil {
			logger.Error(ctx, "failed to mark batch failed", "batch_id", batch.ID, "error", markErr)
		}
		return batch, err
	}
	batch.Status = StatusCommitted
	return batch, nil
}

// DistributeFixedInput describes a payment applied with pre-computed shares.
type DistributeFixedInput struct {
	BatchID      id.ID
	SourceAmount types.Money
	Currency     string
	SourceRef    string
	Shares       []Share
	OccurredAt   time.Time
	CreatedBy    string
}

// Share is one fixed-amount destination of a payment.
type Share struct {
	AccountID id.ID
	Amount    types.Money
}

// computeSplits resolves rule accounts and computes split amounts with the
// last-split remainder absorption.
func (e *Engine) computeSplits(ctx context.Context, source types.Money, currency string, rules RuleSet) ([]Split, error) {
	rr := rules.Rules()
	splits := make([]Split, 0, len(rr))
	allocated := types.Zero()

	for i, rule := range rr {
		acc, err := e.registry.GetByCode(ctx, rule.AccountCode)
		if err != nil {
			return nil, err
		}
		if acc.Currency != currency {
			return nil, apperror.NewValidation(
				fmt.Sprintf("account %s holds %s, payment is %s", acc.Code, acc.Currency, currency),
			)
		}

		var amount types.Money
		if i == len(rr)-1 {
			amount = source.Sub(allocated)
		} else {
			amount = types.RoundCurrency(source.Mul(rule.Percent).Div(hundred), currency)
		}
		if !amount.IsPositive() {
			return nil, apperror.NewValidation(
				fmt.Sprintf("split for account %s computes to %s", acc.Code, amount),
			)
		}
		allocated = allocated.Add(amount)
		splits = append(splits, Split{
			AccountID: acc.ID,
			Percent:   rule.Percent,
			Amount:    amount,
		})
	}
	return splits, nil
}

// GetBatch returns a batch with its splits.
func (e *Engine) GetBatch(ctx context.Context, batchID id.ID) (*Batch, error) {
	return e.batches.Get(ctx, batchID)
}

// movementsFor builds one credit movement per split with ids derived from
// the batch id, so retrying the same batch reproduces the same movements.
func (e *Engine) movementsFor(batch *Batch, occurredAt time.Time) []ledger.Movement {
	movements := make([]ledger.Movement, 0, len(batch.Splits))
	for i, split := range batch.Splits {
		movements = append(movements, ledger.Movement{
			ID:         id.Derive(batch.ID, fmt.Sprintf("split-%d", i)),
			AccountID:  split.AccountID,
			Direction:  ledger.DirectionCredit,
			Amount:     split.Amount,
			OccurredAt: occurredAt,
			Concept:    "Distribución de pago",
			SourceType: ledger.SourceDistribution,
			SourceRef:  batch.SourceRef,
			BatchID:    batch.ID,
			CreatedBy:  batch.CreatedBy,
			CreatedAt:  time.Now().UTC(),
		})
	}
	return movements
}
