package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"spinroyale/internal/config"
	"spinroyale/internal/metrics"
	"spinroyale/internal/models"
)

// PendingPayout is a computed win whose credit has not reached the ledger yet.
type PendingPayout struct {
	Amount int64
	Memo   Memo
	Game   models.GameType
}

// Session is the single-player entry point. It owns the engines and serializes
// every ledger and claim mutation, so a round always debits and settles before
// the next one starts.
type Session struct {
	mu sync.Mutex

	cfg     *config.GameConfig
	ledger  Ledger
	claims  *ClaimTracker
	reels   *ReelEngine
	reveal  *RevealEngine
	crash   *CrashEngine
	retry   RetryPolicy
	log     *zap.Logger
	metrics *metrics.Metrics

	pending []PendingPayout
}

type Option func(*Session)

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Session) { s.retry = p }
}

func NewSession(cfg *config.GameConfig, ledger Ledger, claims ClaimStore, rng RandomSource, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		ledger: ledger,
		claims: NewClaimTracker(claims),
		reels:  NewReelEngine(cfg, rng),
		reveal: NewRevealEngine(cfg, rng),
		crash:  NewCrashEngine(cfg, rng),
		retry:  DefaultRetryPolicy,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	return s
}

// SpinSlots consumes one spin, draws the reels and credits the reward.
func (s *Session) SpinSlots(ctx context.Context) (models.ReelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.DecrementSpin(ctx); err != nil {
		return models.ReelResult{}, s.surface("spin", err)
	}

	result := s.reels.DrawAndScore()
	s.metrics.Round(string(models.GameTypeSlots), string(result.OutcomeKind))

	err := s.credit(ctx, models.GameTypeSlots, result.Reward, Memo{
		Type:        models.TransactionTypeWin,
		RoundID:     result.RoundID,
		Description: fmt.Sprintf("Slots %s", result.OutcomeKind),
	})
	return result, err
}

// StartReveal debits the stake and deals a new board.
func (s *Session) StartReveal(ctx context.Context, bet int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bet <= 0 {
		return fmt.Errorf("%w: bet must be positive, got %d", models.ErrInvalidAmount, bet)
	}
	if s.reveal.Status() == models.RevealActive {
		return s.surface("start reveal", fmt.Errorf("%w: round already active", models.ErrInvalidState))
	}

	roundID := models.NewRoundID(models.GameTypeReveal)
	if err := s.ledger.Debit(ctx, bet, Memo{
		Type:        models.TransactionTypeBet,
		RoundID:     roundID,
		Description: "Reveal stake",
	}); err != nil {
		return s.surface("start reveal", err)
	}
	s.metrics.Wager(string(models.GameTypeReveal), bet)

	if err := s.reveal.Reset(); err != nil {
		return err
	}
	return s.reveal.StartRound(roundID, bet)
}

// Reveal taps a column on the active row. A round that ends here is settled
// before returning.
func (s *Session) Reveal(ctx context.Context, column int) (models.RevealStep, *models.RevealSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.reveal.Reveal(column)
	if err != nil {
		return step, nil, s.surface("reveal", err)
	}
	if step.Status != models.RevealFinished {
		return step, nil, nil
	}

	settlement, err := s.settleReveal(ctx)
	return step, settlement, err
}

// CashOut ends the reveal round at the current multiplier and settles it.
func (s *Session) CashOut(ctx context.Context) (models.RevealStep, *models.RevealSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.reveal.CashOut()
	if err != nil {
		return step, nil, s.surface("cash out", err)
	}

	settlement, err := s.settleReveal(ctx)
	return step, settlement, err
}

func (s *Session) settleReveal(ctx context.Context) (*models.RevealSettlement, error) {
	settlement, err := s.reveal.Settle()
	if err != nil {
		return nil, err
	}
	s.metrics.Round(string(models.GameTypeReveal), string(settlement.Outcome))

	if settlement.Credit == 0 {
		return &settlement, nil
	}

	err = s.credit(ctx, models.GameTypeReveal, settlement.Credit, Memo{
		Type:        models.TransactionTypeWin,
		RoundID:     settlement.RoundID,
		Description: fmt.Sprintf("Reveal %s at %.4fx", settlement.Outcome, settlement.Multiplier),
	})
	return &settlement, err
}

// ResetReveal discards a finished reveal round.
func (s *Session) ResetReveal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal.Reset()
}

// PlayCrash debits the stake, draws one crash round and on a win credits the
// stake plus profit.
func (s *Session) PlayCrash(ctx context.Context, target float64, bet int64) (models.CrashRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bet < 0 {
		return models.CrashRound{}, fmt.Errorf("%w: negative bet %d", models.ErrInvalidAmount, bet)
	}

	roundID := models.NewRoundID(models.GameTypeCrash)
	if err := s.ledger.Debit(ctx, bet, Memo{
		Type:        models.TransactionTypeBet,
		RoundID:     roundID,
		Description: fmt.Sprintf("Crash stake at %.2fx", s.crash.ClampTarget(target)),
	}); err != nil {
		return models.CrashRound{}, s.surface("play crash", err)
	}
	s.metrics.Wager(string(models.GameTypeCrash), bet)

	round := s.crash.PlayRound(roundID, target, bet)
	outcome := "lost"
	if round.Won {
		outcome = "won"
	}
	s.metrics.Round(string(models.GameTypeCrash), outcome)

	if !round.Won || round.Payout() == 0 {
		return round, nil
	}

	err := s.credit(ctx, models.GameTypeCrash, round.Payout(), Memo{
		Type:        models.TransactionTypeWin,
		RoundID:     round.RoundID,
		Description: fmt.Sprintf("Crash won at %.2fx (crashed %.2fx)", round.TargetMultiplier, round.CrashMultiplier),
	})
	return round, err
}

// ClaimDaily grants the daily bonus for category once per calendar day.
// The claim record and the grant succeed or fail together.
func (s *Session) ClaimDaily(ctx context.Context, category models.ClaimCategory, now time.Time) (models.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.claims.ClaimWith(ctx, category, now, func(ctx context.Context) (int64, error) {
		switch category {
		case models.ClaimCoins:
			amount := s.cfg.Daily.Coins
			return amount, s.retry.Do(ctx, func(ctx context.Context) error {
				return s.ledger.Credit(ctx, amount, Memo{
					Type:        models.TransactionTypeBonus,
					Description: "Daily coins",
				})
			})
		case models.ClaimSpins:
			n := s.cfg.Daily.Spins
			return n, s.retry.Do(ctx, func(ctx context.Context) error {
				return s.ledger.IncrementSpins(ctx, n)
			})
		}
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownCategory, category)
	})
	if err != nil {
		s.metrics.Claim(string(category), "failed")
		return result, s.surface("claim daily", err)
	}

	if result.AlreadyClaimed {
		s.metrics.Claim(string(category), "already_claimed")
		return result, nil
	}

	s.metrics.Claim(string(category), "granted")
	s.log.Info("daily reward claimed",
		zap.String("category", string(category)),
		zap.String("day", result.Day),
		zap.Int64("granted", result.Granted))
	return result, nil
}

func (s *Session) CanClaim(ctx context.Context, category models.ClaimCategory, now time.Time) (bool, error) {
	return s.claims.CanClaim(ctx, category, now)
}

func (s *Session) Balance(ctx context.Context) (int64, error) {
	return s.ledger.Balance(ctx)
}

func (s *Session) DailySpinsRemaining(ctx context.Context) (int64, error) {
	return s.ledger.RemainingSpins(ctx)
}

func (s *Session) CurrentMultiplier() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal.CurrentMultiplier()
}

func (s *Session) ActiveRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal.ActiveRow()
}

func (s *Session) RevealStatus() models.RevealStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal.Status()
}

func (s *Session) Board() [RevealRows][RevealColumns]models.CellState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal.Board()
}

// WinPercentage is the displayed chance of a crash round at target succeeding.
func (s *Session) WinPercentage(target float64) float64 {
	return WinPercentage(s.crash.ClampTarget(target))
}

func (s *Session) Subscribe(obs LedgerObserver) func() {
	return s.ledger.Subscribe(obs)
}

// PendingPayouts lists wins whose credit is still outstanding.
func (s *Session) PendingPayouts() []PendingPayout {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PendingPayout, len(s.pending))
	copy(out, s.pending)
	return out
}

// RetryPending re-offers outstanding credits to the ledger. Payouts that
// fail again stay queued.
func (s *Session) RetryPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining []PendingPayout
	var errs []error
	for _, p := range s.pending {
		err := s.retry.Do(ctx, func(ctx context.Context) error {
			return s.ledger.Credit(ctx, p.Amount, p.Memo)
		})
		if err != nil {
			remaining = append(remaining, p)
			errs = append(errs, err)
			continue
		}
		s.metrics.Payout(string(p.Game), p.Amount)
		s.log.Info("pending payout credited",
			zap.String("game", string(p.Game)),
			zap.String("round_id", p.Memo.RoundID),
			zap.Int64("amount", p.Amount))
	}

	s.pending = remaining
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d still outstanding: %w", models.ErrPayoutPending, len(remaining), errors.Join(errs...))
	}
	return nil
}

// credit pays out a computed win. A credit that keeps failing is queued
// rather than dropped.
func (s *Session) credit(ctx context.Context, game models.GameType, amount int64, memo Memo) error {
	if amount <= 0 {
		return nil
	}

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.ledger.Credit(ctx, amount, memo)
	})
	if err == nil {
		s.metrics.Payout(string(game), amount)
		return nil
	}

	s.pending = append(s.pending, PendingPayout{Amount: amount, Memo: memo, Game: game})
	s.metrics.Failure("credit")
	s.log.Error("credit failed, payout queued",
		zap.String("game", string(game)),
		zap.String("round_id", memo.RoundID),
		zap.Int64("amount", amount),
		zap.Error(err))
	return fmt.Errorf("%w: %d coins for round %s: %w", models.ErrPayoutPending, amount, memo.RoundID, err)
}

// surface logs err at a level matching its kind and returns it unchanged.
func (s *Session) surface(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidState):
		s.log.Warn("rejected call in wrong state", zap.String("op", op), zap.Error(err))
	case errors.Is(err, models.ErrInsufficientFunds), errors.Is(err, models.ErrNoSpinsLeft):
		s.log.Debug("request refused", zap.String("op", op), zap.Error(err))
	default:
		s.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
