package services

import (
	"context"

	"spinroyale/internal/models"
)

// Memo describes why a ledger entry happened; stores may keep it as history.
type Memo struct {
	Type        models.TransactionType
	RoundID     string
	Description string
}

// Ledger holds the player's coins and remaining slot spins.
// Debit fails with models.ErrInsufficientFunds and DecrementSpin with
// models.ErrNoSpinsLeft, in both cases without changing anything.
type Ledger interface {
	Balance(ctx context.Context) (int64, error)
	Credit(ctx context.Context, amount int64, memo Memo) error
	Debit(ctx context.Context, amount int64, memo Memo) error
	RemainingSpins(ctx context.Context) (int64, error)
	DecrementSpin(ctx context.Context) error
	IncrementSpins(ctx context.Context, n int64) error
	Subscribe(obs LedgerObserver) func()
}
