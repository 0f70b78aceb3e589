package models

type GameType string

const (
	GameTypeSlots  GameType = "slots"
	GameTypeReveal GameType = "reveal"
	GameTypeCrash  GameType = "crash"
)

// Symbol is one face of a reel. Symbols compare by value only.
type Symbol string

type OutcomeKind string

const (
	OutcomeJackpot OutcomeKind = "jackpot"
	OutcomeTriple  OutcomeKind = "triple"
	OutcomePair    OutcomeKind = "pair"
	OutcomeNone    OutcomeKind = "none"
)

type ReelResult struct {
	RoundID     string      `json:"round_id"`
	OutcomeKind OutcomeKind `json:"outcome_kind"`
	Reward      int64       `json:"reward"`
	Symbols     [3]Symbol   `json:"symbols"`
}

type RevealStatus string

const (
	RevealIdle     RevealStatus = "idle"
	RevealActive   RevealStatus = "active"
	RevealFinished RevealStatus = "finished"
)

type RevealOutcome string

const (
	RevealOutcomeNone      RevealOutcome = ""
	RevealOutcomeLost      RevealOutcome = "lost"
	RevealOutcomeWon       RevealOutcome = "won"
	RevealOutcomeCashedOut RevealOutcome = "cashed_out"
)

// CellState is what the player can see of a single reveal cell.
type CellState string

const (
	CellHidden      CellState = "hidden"
	CellHighlighted CellState = "highlighted"
	CellSafe        CellState = "safe"
	CellHazard      CellState = "hazard"
)

// RevealStep reports the effect of a single reveal tap.
type RevealStep struct {
	Row        int           `json:"row"`
	Column     int           `json:"column"`
	Hazard     bool          `json:"hazard"`
	Multiplier float64       `json:"multiplier"`
	ActiveRow  int           `json:"active_row"`
	Status     RevealStatus  `json:"status"`
	Outcome    RevealOutcome `json:"outcome,omitempty"`
}

// RevealSettlement is the money side of a finished reveal round.
// Credit is what the ledger must receive; zero unless the multiplier beat 1.0.
type RevealSettlement struct {
	RoundID     string        `json:"round_id"`
	Outcome     RevealOutcome `json:"outcome"`
	Bet         int64         `json:"bet"`
	Multiplier  float64       `json:"multiplier"`
	FinalAmount int64         `json:"final_amount"`
	NetGain     int64         `json:"net_gain"`
	Credit      int64         `json:"credit"`
}

type CrashRound struct {
	RoundID          string  `json:"round_id"`
	TargetMultiplier float64 `json:"target_multiplier"`
	BetAmount        int64   `json:"bet_amount"`
	CrashMultiplier  float64 `json:"crash_multiplier"`
	Won              bool    `json:"won"`
	ProfitIfWin      int64   `json:"profit_if_win"`
	WinProbability   float64 `json:"win_probability"`
}

// Payout is the total credit owed for a crash round: the returned stake plus profit.
func (r CrashRound) Payout() int64 {
	if !r.Won {
		return 0
	}
	return r.BetAmount + r.ProfitIfWin
}
