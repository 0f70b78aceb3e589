package services

import (
	"context"
	"errors"
	"time"

	"spinroyale/internal/models"
)

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, models.ErrInsufficientFunds) ||
		errors.Is(err, models.ErrNoSpinsLeft) ||
		errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
// The wait grows linearly with the attempt number.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil || permanent(err) {
			return err
		}
		if i == attempts {
			break
		}

		timer := time.NewTimer(p.Backoff * time.Duration(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
