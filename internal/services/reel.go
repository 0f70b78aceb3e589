package services

import (
	"spinroyale/internal/config"
	"spinroyale/internal/models"
)

// ReelEngine draws three independent reels and scores them.
// Rewards are flat and never scaled by a stake.
type ReelEngine struct {
	symbols []models.Symbol
	jackpot models.Symbol
	rewards config.Rewards
	rng     RandomSource
}

func NewReelEngine(cfg *config.GameConfig, rng RandomSource) *ReelEngine {
	symbols := make([]models.Symbol, len(cfg.Symbols))
	copy(symbols, cfg.Symbols)

	return &ReelEngine{
		symbols: symbols,
		jackpot: cfg.JackpotSymbol,
		rewards: cfg.Rewards,
		rng:     rng,
	}
}

func (e *ReelEngine) Symbols() []models.Symbol {
	out := make([]models.Symbol, len(e.symbols))
	copy(out, e.symbols)
	return out
}

func (e *ReelEngine) DrawAndScore() models.ReelResult {
	var draw [3]models.Symbol
	for i := range draw {
		draw[i] = e.symbols[e.rng.IntN(len(e.symbols))]
	}
	return e.Score(draw)
}

// Score applies the payout rule to a given draw.
func (e *ReelEngine) Score(symbols [3]models.Symbol) models.ReelResult {
	a, b, c := symbols[0], symbols[1], symbols[2]

	result := models.ReelResult{
		RoundID: models.NewRoundID(models.GameTypeSlots),
		Symbols: symbols,
	}

	switch {
	case a == b && b == c && a == e.jackpot:
		result.OutcomeKind = models.OutcomeJackpot
		result.Reward = e.rewards.Jackpot
	case a == b && b == c:
		result.OutcomeKind = models.OutcomeTriple
		result.Reward = e.rewards.Triple
	case a == b || a == c || b == c:
		result.OutcomeKind = models.OutcomePair
		result.Reward = e.rewards.Pair
	default:
		result.OutcomeKind = models.OutcomeNone
		result.Reward = e.rewards.None
	}

	return result
}
