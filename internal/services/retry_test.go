package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spinroyale/internal/models"
	"spinroyale/internal/services"
)

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	policy := services.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := policy.Do(ctx, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("expected success on third call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = policy.Do(ctx, func(context.Context) error {
		calls++
		return models.ErrInsufficientFunds
	})
	if !errors.Is(err, models.ErrInsufficientFunds) || calls != 1 {
		t.Errorf("permanent errors must not be retried, calls=%d err=%v", calls, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	calls = 0
	err = services.RetryPolicy{Attempts: 5, Backoff: time.Hour}.Do(cancelled, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("cancelled context should stop retries, calls=%d err=%v", calls, err)
	}
}
