package services

import (
	"context"
	"fmt"
	"time"

	"spinroyale/internal/models"
)

// ClaimStore persists the last claim instant per category.
type ClaimStore interface {
	GetLastClaimDate(ctx context.Context, category models.ClaimCategory) (time.Time, bool, error)
	SetLastClaimDate(ctx context.Context, category models.ClaimCategory, date time.Time) error
	ClearLastClaimDate(ctx context.Context, category models.ClaimCategory) error
}

// ClaimTracker enforces one claim per category per calendar day. The day
// boundary is taken from the location of the now argument.
type ClaimTracker struct {
	store ClaimStore
}

func NewClaimTracker(store ClaimStore) *ClaimTracker {
	return &ClaimTracker{store: store}
}

func (t *ClaimTracker) IsClaimedToday(ctx context.Context, category models.ClaimCategory, now time.Time) (bool, error) {
	if !category.Valid() {
		return false, fmt.Errorf("%w: %s", models.ErrUnknownCategory, category)
	}

	last, ok, err := t.store.GetLastClaimDate(ctx, category)
	if err != nil {
		return false, fmt.Errorf("failed to read claim record: %w", err)
	}
	if !ok {
		return false, nil
	}
	return models.SameDay(last, now), nil
}

func (t *ClaimTracker) CanClaim(ctx context.Context, category models.ClaimCategory, now time.Time) (bool, error) {
	claimed, err := t.IsClaimedToday(ctx, category, now)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Claim records today's claim. A second claim on the same day is a no-op
// reported through AlreadyClaimed.
func (t *ClaimTracker) Claim(ctx context.Context, category models.ClaimCategory, now time.Time) (models.ClaimResult, error) {
	return t.ClaimWith(ctx, category, now, nil)
}

const rollbackTimeout = 5 * time.Second

// ClaimWith records the claim and runs grant as one unit: if grant fails the
// previous record is restored, so the claim can be retried later.
func (t *ClaimTracker) ClaimWith(ctx context.Context, category models.ClaimCategory, now time.Time, grant func(context.Context) (int64, error)) (models.ClaimResult, error) {
	result := models.ClaimResult{
		Category: category,
		Day:      models.DayKey(now),
	}

	if !category.Valid() {
		return result, fmt.Errorf("%w: %s", models.ErrUnknownCategory, category)
	}

	prev, hadPrev, err := t.store.GetLastClaimDate(ctx, category)
	if err != nil {
		return result, fmt.Errorf("failed to read claim record: %w", err)
	}
	if hadPrev && models.SameDay(prev, now) {
		result.AlreadyClaimed = true
		return result, nil
	}

	if err := t.store.SetLastClaimDate(ctx, category, now); err != nil {
		return result, fmt.Errorf("failed to record claim: %w", err)
	}

	if grant == nil {
		return result, nil
	}

	granted, err := grant(ctx)
	if err != nil {
		rollbackErr := t.rollback(ctx, category, prev, hadPrev)
		if rollbackErr != nil {
			return result, fmt.Errorf("grant failed: %w; claim rollback failed: %w", err, rollbackErr)
		}
		return result, fmt.Errorf("grant failed: %w", err)
	}

	result.Granted = granted
	return result, nil
}

// rollback restores the claim record after a failed grant. It outlives a
// cancelled or expired caller context, since the grant often fails for
// exactly that reason.
func (t *ClaimTracker) rollback(ctx context.Context, category models.ClaimCategory, prev time.Time, hadPrev bool) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if hadPrev {
		return t.store.SetLastClaimDate(ctx, category, prev)
	}
	return t.store.ClearLastClaimDate(ctx, category)
}
