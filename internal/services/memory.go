package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spinroyale/internal/models"
)

// MemoryLedger is a process-local Ledger. History keeps the last maxHistory entries.
type MemoryLedger struct {
	*Broadcaster

	mu      sync.Mutex
	wallet  models.Wallet
	history []models.Transaction
}

const maxHistory = 100

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger(balance, spins int64) *MemoryLedger {
	return &MemoryLedger{
		Broadcaster: NewBroadcaster(),
		wallet: models.Wallet{
			Balance:        balance,
			SpinsRemaining: spins,
		},
	}
}

func (l *MemoryLedger) Balance(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet.Balance, nil
}

func (l *MemoryLedger) Wallet() models.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet
}

func (l *MemoryLedger) Credit(ctx context.Context, amount int64, memo Memo) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit %d", models.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	before := l.wallet.Balance
	l.wallet.Balance += amount
	if memo.Type == models.TransactionTypeWin {
		l.wallet.TotalWon += amount
	}
	after := l.wallet.Balance
	l.record(memo, amount, before, after)
	l.mu.Unlock()

	l.BroadcastBalance(after)
	return nil
}

func (l *MemoryLedger) Debit(ctx context.Context, amount int64, memo Memo) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit %d", models.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	if l.wallet.Balance < amount {
		balance := l.wallet.Balance
		l.mu.Unlock()
		return fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, balance, amount)
	}
	before := l.wallet.Balance
	l.wallet.Balance -= amount
	l.wallet.TotalWagered += amount
	after := l.wallet.Balance
	l.record(memo, -amount, before, after)
	l.mu.Unlock()

	l.BroadcastBalance(after)
	return nil
}

func (l *MemoryLedger) RemainingSpins(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet.SpinsRemaining, nil
}

func (l *MemoryLedger) DecrementSpin(ctx context.Context) error {
	l.mu.Lock()
	if l.wallet.SpinsRemaining <= 0 {
		l.mu.Unlock()
		return models.ErrNoSpinsLeft
	}
	l.wallet.SpinsRemaining--
	spins := l.wallet.SpinsRemaining
	l.mu.Unlock()

	l.BroadcastSpins(spins)
	return nil
}

func (l *MemoryLedger) IncrementSpins(ctx context.Context, n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: increment spins by %d", models.ErrInvalidAmount, n)
	}

	l.mu.Lock()
	l.wallet.SpinsRemaining += n
	spins := l.wallet.SpinsRemaining
	l.mu.Unlock()

	l.BroadcastSpins(spins)
	return nil
}

// History returns recorded transactions, newest first.
func (l *MemoryLedger) History() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Transaction, len(l.history))
	for i, tx := range l.history {
		out[len(l.history)-1-i] = tx
	}
	return out
}

func (l *MemoryLedger) record(memo Memo, amount, before, after int64) {
	if memo.Type == "" {
		return
	}
	l.history = append(l.history, models.Transaction{
		ID:            models.NewTransactionID(),
		Type:          memo.Type,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		RoundID:       memo.RoundID,
		Description:   memo.Description,
		CreatedAt:     time.Now(),
	})
	if len(l.history) > maxHistory {
		l.history = l.history[len(l.history)-maxHistory:]
	}
}

// MemoryClaimStore keeps claim records in a map.
type MemoryClaimStore struct {
	mu     sync.Mutex
	claims map[models.ClaimCategory]time.Time
}

var _ ClaimStore = (*MemoryClaimStore)(nil)

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{claims: make(map[models.ClaimCategory]time.Time)}
}

func (s *MemoryClaimStore) GetLastClaimDate(ctx context.Context, category models.ClaimCategory) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.claims[category]
	return t, ok, nil
}

func (s *MemoryClaimStore) SetLastClaimDate(ctx context.Context, category models.ClaimCategory, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[category] = date
	return nil
}

func (s *MemoryClaimStore) ClearLastClaimDate(ctx context.Context, category models.ClaimCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, category)
	return nil
}
