// Command sim plays many rounds of every game against throwaway wallets and
// reports the observed return to player.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spinroyale/internal/config"
	"spinroyale/internal/logger"
	"spinroyale/internal/metrics"
	"spinroyale/internal/models"
	"spinroyale/internal/services"
)

type options struct {
	rounds     int
	seed       uint64
	store      string
	bet        int64
	target     float64
	revealRows int
}

type tally struct {
	rounds  int
	wagered int64
	paid    int64
	wins    int
}

func (t tally) rtp() float64 {
	if t.wagered == 0 {
		return 0
	}
	return float64(t.paid) / float64(t.wagered) * 100
}

func (t tally) winRate() float64 {
	if t.rounds == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.rounds) * 100
}

func main() {
	var opts options
	flag.IntVar(&opts.rounds, "rounds", 10000, "rounds to play per game")
	flag.Uint64Var(&opts.seed, "seed", 1, "seed for the reproducible random streams")
	flag.StringVar(&opts.store, "store", "memory", "ledger backend: memory or redis")
	flag.Int64Var(&opts.bet, "bet", 100, "stake per reveal and crash round")
	flag.Float64Var(&opts.target, "target", 2, "crash cash-out multiplier")
	flag.IntVar(&opts.revealRows, "reveal-rows", 3, "rows to clear before cashing out a reveal round")
	flag.Parse()

	if opts.revealRows < 1 {
		log.Fatalf("-reveal-rows must be at least 1, got %d", opts.revealRows)
	}
	if opts.store != "memory" && opts.store != "redis" {
		log.Fatalf("unknown store %q", opts.store)
	}

	found, err := config.LoadDotEnv()
	if err != nil {
		log.Fatalf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if !found {
		zl.Debug("no .env file found, using environment variables")
	}

	gameCfg, err := config.LoadGameConfig(cfg.GameConfig)
	if err != nil {
		zl.Fatal("failed to load game config", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		zl.Fatal("failed to register metrics", zap.Error(err))
	}

	sim := &simulator{opts: opts, cfg: cfg, game: gameCfg, log: zl, metrics: m}

	var slots, reveal, crash tally
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() (err error) {
		slots, err = sim.run(ctx, models.GameTypeSlots, 0, sim.playSlots)
		return err
	})
	g.Go(func() (err error) {
		reveal, err = sim.run(ctx, models.GameTypeReveal, 1, sim.playReveal)
		return err
	})
	g.Go(func() (err error) {
		crash, err = sim.run(ctx, models.GameTypeCrash, 2, sim.playCrash)
		return err
	})
	if err := g.Wait(); err != nil {
		zl.Fatal("simulation failed", zap.Error(err))
	}

	zl.Info("slots",
		zap.Int("spins", slots.rounds),
		zap.Float64("winning_spin_percent", slots.winRate()),
		zap.Int64("coins_paid", slots.paid))
	zl.Info("reveal",
		zap.Int("rounds", reveal.rounds),
		zap.Int("cleared_rows", opts.revealRows),
		zap.Float64("cashed_out_percent", reveal.winRate()),
		zap.Float64("rtp_percent", reveal.rtp()))
	zl.Info("crash",
		zap.Float64("target", opts.target),
		zap.Float64("displayed_win_percent", services.WinPercentage(opts.target)),
		zap.Float64("observed_win_percent", crash.winRate()),
		zap.Float64("rtp_percent", crash.rtp()))

	logCounters(zl, reg)
}

type simulator struct {
	opts    options
	cfg     *config.Config
	game    *config.GameConfig
	log     *zap.Logger
	metrics *metrics.Metrics
}

type playFunc func(ctx context.Context, session *services.Session, picks services.RandomSource, t *tally) error

// run plays opts.rounds rounds of one game on its own wallet and session.
func (s *simulator) run(ctx context.Context, game models.GameType, stream uint64, play playFunc) (tally, error) {
	startBalance := s.opts.bet * int64(s.opts.rounds)
	ledger, claims, cleanup, err := s.openStore(ctx, game, startBalance)
	if err != nil {
		return tally{}, err
	}
	defer cleanup()

	lg := s.log.Named(string(game))
	seed := s.opts.seed + stream*1000
	session := services.NewSession(s.game, ledger, claims, services.NewSeededSource(seed),
		services.WithLogger(lg),
		services.WithMetrics(s.metrics),
	)
	picks := services.NewSeededSource(seed + 1)

	if game == models.GameTypeSlots {
		if _, err := session.ClaimDaily(ctx, models.ClaimSpins, time.Now()); err != nil {
			return tally{}, fmt.Errorf("daily spins: %w", err)
		}
	}

	var t tally
	for i := 0; i < s.opts.rounds; i++ {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		err := play(ctx, session, picks, &t)
		if errors.Is(err, models.ErrNoSpinsLeft) {
			break
		}
		if err != nil {
			return t, fmt.Errorf("%s round %d: %w", game, i, err)
		}
	}

	balance, err := session.Balance(ctx)
	if err != nil {
		return t, err
	}
	lg.Debug("wallet settled",
		zap.Int64("start_balance", startBalance),
		zap.Int64("end_balance", balance),
		zap.Int("pending_payouts", len(session.PendingPayouts())))
	return t, nil
}

func (s *simulator) openStore(ctx context.Context, game models.GameType, balance int64) (services.Ledger, services.ClaimStore, func(), error) {
	spins := int64(0)
	if game == models.GameTypeSlots {
		// Daily spins arrive through the claim; the rest are preloaded.
		spins = max(int64(s.opts.rounds)-s.game.Daily.Spins, 0)
	}

	if s.opts.store == "memory" {
		return services.NewMemoryLedger(balance, spins), services.NewMemoryClaimStore(), func() {}, nil
	}

	rs, err := services.NewRedisStore(ctx, s.cfg, fmt.Sprintf("sim-%s-%s", game, uuid.NewString()),
		services.WithStoreLogger(s.log.Named("redis")))
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := rs.DeleteProfile(context.Background()); err != nil {
			s.log.Warn("failed to clean up simulation profile", zap.Error(err))
		}
		_ = rs.Close()
	}
	if err := rs.SaveWallet(ctx, &models.Wallet{Balance: balance, SpinsRemaining: spins}); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to seed wallet: %w", err)
	}
	return rs, rs, cleanup, nil
}

func (s *simulator) playSlots(ctx context.Context, session *services.Session, _ services.RandomSource, t *tally) error {
	res, err := session.SpinSlots(ctx)
	if err != nil {
		return err
	}
	t.rounds++
	t.paid += res.Reward
	if res.OutcomeKind != models.OutcomeNone {
		t.wins++
	}
	return nil
}

// playReveal clears up to opts.revealRows rows with random picks, then cashes out.
func (s *simulator) playReveal(ctx context.Context, session *services.Session, picks services.RandomSource, t *tally) error {
	if err := session.StartReveal(ctx, s.opts.bet); err != nil {
		return err
	}

	var settlement *models.RevealSettlement
	for cleared := 0; cleared < s.opts.revealRows && settlement == nil; cleared++ {
		var err error
		if _, settlement, err = session.Reveal(ctx, picks.IntN(services.RevealColumns)); err != nil {
			return err
		}
	}
	if settlement == nil {
		var err error
		if _, settlement, err = session.CashOut(ctx); err != nil {
			return err
		}
	}

	t.rounds++
	t.wagered += settlement.Bet
	t.paid += settlement.Credit
	if settlement.Credit > 0 {
		t.wins++
	}
	return nil
}

func (s *simulator) playCrash(ctx context.Context, session *services.Session, _ services.RandomSource, t *tally) error {
	round, err := session.PlayCrash(ctx, s.opts.target, s.opts.bet)
	if err != nil {
		return err
	}
	t.rounds++
	t.wagered += round.BetAmount
	t.paid += round.Payout()
	if round.Won {
		t.wins++
	}
	return nil
}

func logCounters(zl *zap.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		zl.Warn("failed to gather metrics", zap.Error(err))
		return
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			fields := []zap.Field{zap.Float64("value", metric.GetCounter().GetValue())}
			for _, lp := range metric.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			zl.Debug(mf.GetName(), fields...)
		}
	}
}
