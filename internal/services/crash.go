package services

import (
	"math"

	"github.com/shopspring/decimal"

	"spinroyale/internal/config"
	"spinroyale/internal/models"
)

const MinTargetMultiplier = 1.0

// CrashEngine plays single-shot crash rounds: one uniform draw u gives a crash
// point of 1/u, capped at the configured maximum. P(crash >= m) = 1/m.
type CrashEngine struct {
	maxMultiplier float64
	rng           RandomSource
}

func NewCrashEngine(cfg *config.GameConfig, rng RandomSource) *CrashEngine {
	return &CrashEngine{
		maxMultiplier: cfg.MaxCrashMultiplier,
		rng:           rng,
	}
}

func (e *CrashEngine) MaxMultiplier() float64 { return e.maxMultiplier }

// ClampTarget forces target into [1.0, max].
func (e *CrashEngine) ClampTarget(target float64) float64 {
	if math.IsNaN(target) || target < MinTargetMultiplier {
		return MinTargetMultiplier
	}
	return math.Min(target, e.maxMultiplier)
}

// CrashMultiplier maps a uniform draw onto a crash point.
func (e *CrashEngine) CrashMultiplier(u float64) float64 {
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	return math.Min(1/u, e.maxMultiplier)
}

// Play draws one round. Out of range targets are clamped and a negative bet
// counts as zero. ProfitIfWin is net of the stake.
func (e *CrashEngine) Play(target float64, bet int64) models.CrashRound {
	return e.PlayRound(models.NewRoundID(models.GameTypeCrash), target, bet)
}

// PlayRound is Play under a round ID chosen by the caller.
func (e *CrashEngine) PlayRound(roundID string, target float64, bet int64) models.CrashRound {
	target = e.ClampTarget(target)
	if bet < 0 {
		bet = 0
	}

	crash := e.CrashMultiplier(e.rng.Float64())

	return models.CrashRound{
		RoundID:          roundID,
		TargetMultiplier: target,
		BetAmount:        bet,
		CrashMultiplier:  crash,
		Won:              crash >= target,
		ProfitIfWin:      ProfitIfWin(target, bet),
		WinProbability:   WinProbability(target),
	}
}

// ProfitIfWin is bet * (target - 1), floored to whole coins.
func ProfitIfWin(target float64, bet int64) int64 {
	return decimal.NewFromInt(bet).
		Mul(decimal.NewFromFloat(target).Sub(decimal.NewFromInt(1))).
		Floor().
		IntPart()
}

func WinProbability(target float64) float64 {
	if target <= 0 {
		return 0
	}
	return 1 / target
}

// WinPercentage is WinProbability scaled to percent for display.
func WinPercentage(target float64) float64 {
	return WinProbability(target) * 100
}
