package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"spinroyale/internal/config"
	"spinroyale/internal/models"
	"spinroyale/internal/services"
)

// flakyLedger fails the next failCredits credits.
type flakyLedger struct {
	*services.MemoryLedger
	failCredits int
}

var errFlaky = errors.New("disk full")

func (l *flakyLedger) Credit(ctx context.Context, amount int64, memo services.Memo) error {
	if l.failCredits > 0 {
		l.failCredits--
		return errFlaky
	}
	return l.MemoryLedger.Credit(ctx, amount, memo)
}

func newTestSession(t *testing.T, ledger services.Ledger, rng services.RandomSource) *services.Session {
	t.Helper()
	return services.NewSession(
		config.DefaultGameConfig(),
		ledger,
		services.NewMemoryClaimStore(),
		rng,
		services.WithLogger(zaptest.NewLogger(t)),
		services.WithRetryPolicy(services.RetryPolicy{Attempts: 2}),
	)
}

func balanceOf(t *testing.T, s *services.Session) int64 {
	t.Helper()
	b, err := s.Balance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSessionCrashEndToEnd(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, services.NewMemoryLedger(1000, 0), services.NewSequenceSource([]float64{0.5, 0.9}, nil))

	round, err := session.PlayCrash(ctx, 1.5, 100)
	if err != nil {
		t.Fatalf("PlayCrash failed: %v", err)
	}
	if !round.Won || round.CrashMultiplier != 2.0 || round.ProfitIfWin != 50 {
		t.Fatalf("unexpected round %+v", round)
	}
	if got := balanceOf(t, session); got != 1050 {
		t.Errorf("expected balance 1050 after win, got %d", got)
	}

	round, err = session.PlayCrash(ctx, 1.5, 100)
	if err != nil {
		t.Fatal(err)
	}
	if round.Won {
		t.Fatalf("crash at %.3f should lose against 1.5", round.CrashMultiplier)
	}
	if got := balanceOf(t, session); got != 950 {
		t.Errorf("expected balance 950 after loss, got %d", got)
	}
}

func TestSessionRefusesBeforeDrawing(t *testing.T) {
	ctx := context.Background()
	// An empty sequence panics on any draw, so these calls must fail first.
	session := newTestSession(t, services.NewMemoryLedger(50, 0), services.NewSequenceSource(nil, nil))

	if _, err := session.PlayCrash(ctx, 2, 100); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
	if err := session.StartReveal(ctx, 100); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
	if _, err := session.SpinSlots(ctx); !errors.Is(err, models.ErrNoSpinsLeft) {
		t.Errorf("expected no spins left, got %v", err)
	}
	if err := session.StartReveal(ctx, 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected invalid amount, got %v", err)
	}
	if got := balanceOf(t, session); got != 50 {
		t.Errorf("refused calls must not move the balance, got %d", got)
	}
}

func TestSessionSpinSlots(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewMemoryLedger(0, 2)
	session := newTestSession(t, ledger, services.NewSequenceSource(nil, []int{3, 3, 3, 0, 0, 1}))

	result, err := session.SpinSlots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.OutcomeKind != models.OutcomeJackpot {
		t.Fatalf("expected jackpot, got %+v", result)
	}

	result, err = session.SpinSlots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.OutcomeKind != models.OutcomePair {
		t.Fatalf("expected pair, got %+v", result)
	}

	if got := balanceOf(t, session); got != 2200 {
		t.Errorf("expected 2200 coins, got %d", got)
	}
	spins, _ := session.DailySpinsRemaining(ctx)
	if spins != 0 {
		t.Errorf("expected spins to be used up, got %d", spins)
	}
}

func TestSessionRevealRound(t *testing.T) {
	ctx := context.Background()
	ints := append(append(hazardsAt(2), hazardsAt(2)...), hazardsAt(0)...)
	session := newTestSession(t, services.NewMemoryLedger(1000, 0), services.NewSequenceSource(nil, ints))

	// Full clear pays floor(100 * 10.1401925625).
	if err := session.StartReveal(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, session); got != 900 {
		t.Fatalf("stake should be debited up front, got %d", got)
	}
	var settlement *models.RevealSettlement
	for i := 0; i < services.RevealRows; i++ {
		step, s, err := session.Reveal(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if i < services.RevealRows-1 && (s != nil || step.Status != models.RevealActive) {
			t.Fatalf("round ended early at step %d", i)
		}
		settlement = s
	}
	if settlement == nil || settlement.Outcome != models.RevealOutcomeWon || settlement.Credit != 1014 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	if got := balanceOf(t, session); got != 1914 {
		t.Errorf("expected 1914 after full clear, got %d", got)
	}

	// Cash out after one row pays 110.
	if err := session.StartReveal(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if _, _, err := session.Reveal(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if session.ActiveRow() != 7 || session.CurrentMultiplier() != 1.1 {
		t.Fatalf("expected row 7 at 1.1x, got row %d at %v", session.ActiveRow(), session.CurrentMultiplier())
	}
	_, settlement, err := session.CashOut(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if settlement.Credit != 110 {
		t.Errorf("expected 110 credit, got %+v", settlement)
	}
	if got := balanceOf(t, session); got != 1924 {
		t.Errorf("expected 1924 after cash out, got %d", got)
	}

	// Hitting a hazard pays nothing.
	if err := session.StartReveal(ctx, 100); err != nil {
		t.Fatal(err)
	}
	_, settlement, err = session.Reveal(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if settlement.Outcome != models.RevealOutcomeLost || settlement.Credit != 0 {
		t.Errorf("unexpected settlement %+v", settlement)
	}
	if got := balanceOf(t, session); got != 1824 {
		t.Errorf("expected 1824 after loss, got %d", got)
	}

	if _, _, err := session.CashOut(ctx); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("cash out after the round ended should fail, got %v", err)
	}
	if err := session.ResetReveal(); err != nil {
		t.Fatal(err)
	}
	if session.RevealStatus() != models.RevealIdle {
		t.Errorf("expected idle after reset, got %s", session.RevealStatus())
	}
}

func TestSessionClaimDaily(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, services.NewMemoryLedger(0, 0), services.NewSeededSource(1))
	now := time.Date(2025, 3, 28, 12, 0, 0, 0, time.UTC)

	result, err := session.ClaimDaily(ctx, models.ClaimCoins, now)
	if err != nil || result.AlreadyClaimed || result.Granted != 1000 {
		t.Fatalf("unexpected claim %+v err=%v", result, err)
	}

	result, err = session.ClaimDaily(ctx, models.ClaimCoins, now.Add(time.Hour))
	if err != nil || !result.AlreadyClaimed {
		t.Fatalf("second claim should be already claimed, got %+v err=%v", result, err)
	}
	if got := balanceOf(t, session); got != 1000 {
		t.Errorf("coins should be granted once, got %d", got)
	}

	if _, err := session.ClaimDaily(ctx, models.ClaimSpins, now); err != nil {
		t.Fatal(err)
	}
	spins, _ := session.DailySpinsRemaining(ctx)
	if spins != 10 {
		t.Errorf("expected 10 spins, got %d", spins)
	}

	can, err := session.CanClaim(ctx, models.ClaimCoins, now.Add(24*time.Hour))
	if err != nil || !can {
		t.Errorf("next day should be claimable, got %v err=%v", can, err)
	}
}

func TestSessionClaimFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	ledger := &flakyLedger{MemoryLedger: services.NewMemoryLedger(0, 0), failCredits: 2}
	session := newTestSession(t, ledger, services.NewSeededSource(1))
	now := time.Date(2025, 3, 28, 12, 0, 0, 0, time.UTC)

	if _, err := session.ClaimDaily(ctx, models.ClaimCoins, now); !errors.Is(err, errFlaky) {
		t.Fatalf("expected grant failure, got %v", err)
	}
	can, _ := session.CanClaim(ctx, models.ClaimCoins, now)
	if !can {
		t.Fatal("failed claim must stay claimable")
	}

	result, err := session.ClaimDaily(ctx, models.ClaimCoins, now)
	if err != nil || result.AlreadyClaimed {
		t.Fatalf("retry should succeed, got %+v err=%v", result, err)
	}
	if got := balanceOf(t, session); got != 1000 {
		t.Errorf("expected exactly one grant, got %d", got)
	}
}

func TestSessionKeepsUnpaidWins(t *testing.T) {
	ctx := context.Background()
	ledger := &flakyLedger{MemoryLedger: services.NewMemoryLedger(1000, 0), failCredits: 2}
	session := newTestSession(t, ledger, services.NewSequenceSource([]float64{0.25}, nil))

	round, err := session.PlayCrash(ctx, 3, 100)
	if !errors.Is(err, models.ErrPayoutPending) {
		t.Fatalf("expected pending payout, got %v", err)
	}
	if !round.Won {
		t.Fatalf("round should still report the win: %+v", round)
	}

	pending := session.PendingPayouts()
	if len(pending) != 1 || pending[0].Amount != 300 || pending[0].Memo.RoundID != round.RoundID {
		t.Fatalf("unexpected pending payouts %+v", pending)
	}

	if err := session.RetryPending(ctx); err != nil {
		t.Fatalf("RetryPending failed: %v", err)
	}
	if len(session.PendingPayouts()) != 0 {
		t.Error("pending payouts should be cleared")
	}
	if got := balanceOf(t, session); got != 1200 {
		t.Errorf("expected 1200 after the retried credit, got %d", got)
	}
}

func TestSessionObserver(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t, services.NewMemoryLedger(500, 0), services.NewSequenceSource([]float64{0.9}, nil))

	var seen []int64
	stop := session.Subscribe(services.ObserverFuncs{OnBalance: func(b int64) { seen = append(seen, b) }})
	defer stop()

	if _, err := session.PlayCrash(ctx, 2, 100); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != 400 {
		t.Errorf("expected one notification of 400, got %v", seen)
	}

	if got := session.WinPercentage(4); got != 25 {
		t.Errorf("expected 25%%, got %v", got)
	}
}

func TestSessionSerializesConcurrentRounds(t *testing.T) {
	const (
		workers = 8
		rounds  = 50
		stake   = 10
	)
	ctx := context.Background()
	start := int64(workers * rounds * stake)
	ledger := services.NewMemoryLedger(start, workers*rounds)
	session := newTestSession(t, ledger, services.NewSeededSource(3))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var won int64
			for i := 0; i < rounds; i++ {
				round, err := session.PlayCrash(ctx, 2, stake)
				if err != nil {
					t.Errorf("crash round failed: %v", err)
					return
				}
				won += round.Payout()

				spin, err := session.SpinSlots(ctx)
				if err != nil {
					t.Errorf("spin failed: %v", err)
					return
				}
				won += spin.Reward
			}

			mu.Lock()
			paid += won
			mu.Unlock()
		}()
	}
	wg.Wait()

	wallet := ledger.Wallet()
	if want := start - workers*rounds*stake + paid; wallet.Balance != want {
		t.Errorf("expected balance %d, got %d", want, wallet.Balance)
	}
	if wallet.TotalWagered != workers*rounds*stake {
		t.Errorf("expected %d wagered, got %d", workers*rounds*stake, wallet.TotalWagered)
	}
	if wallet.SpinsRemaining != 0 {
		t.Errorf("every spin should be used once, %d left", wallet.SpinsRemaining)
	}
	if len(session.PendingPayouts()) != 0 {
		t.Error("no payout should be pending")
	}
}

func TestSessionStakeSharesRoundID(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewMemoryLedger(1000, 0)
	session := newTestSession(t, ledger, services.NewSequenceSource([]float64{0.5}, hazardsAt(2)))

	round, err := session.PlayCrash(ctx, 1.5, 100)
	if err != nil || !round.Won {
		t.Fatalf("expected a winning round, got %+v err=%v", round, err)
	}
	history := ledger.History()
	if len(history) != 2 {
		t.Fatalf("expected stake and win entries, got %+v", history)
	}
	if history[1].Type != models.TransactionTypeBet || history[1].RoundID != round.RoundID {
		t.Errorf("stake entry should carry round %s, got %+v", round.RoundID, history[1])
	}
	if history[0].RoundID != round.RoundID {
		t.Errorf("win entry should carry round %s, got %+v", round.RoundID, history[0])
	}

	if err := session.StartReveal(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if _, _, err := session.Reveal(ctx, 0); err != nil {
		t.Fatal(err)
	}
	_, settlement, err := session.CashOut(ctx)
	if err != nil {
		t.Fatal(err)
	}
	history = ledger.History()
	if history[1].Type != models.TransactionTypeBet || history[1].RoundID != settlement.RoundID || settlement.RoundID == "" {
		t.Errorf("reveal stake should carry round %q, got %+v", settlement.RoundID, history[1])
	}
	if history[0].RoundID != settlement.RoundID {
		t.Errorf("reveal payout should carry round %q, got %+v", settlement.RoundID, history[0])
	}
}
