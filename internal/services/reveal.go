package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"spinroyale/internal/config"
	"spinroyale/internal/models"
)

const (
	RevealRows    = config.RevealRows
	RevealColumns = 3

	bottomRow = RevealRows - 1
	noRow     = -1
)

// RevealEngine runs the row-by-row hazard game for one session.
// Rows are numbered top (0) to bottom (8); play starts at the bottom.
// The whole board is drawn at Start and kept private until rows are revealed.
type RevealEngine struct {
	rowMultipliers []decimal.Decimal
	rng            RandomSource

	roundID    string
	status     models.RevealStatus
	outcome    models.RevealOutcome
	hazards    [RevealRows]int
	activeRow  int
	multiplier decimal.Decimal
	bet        int64
}

func NewRevealEngine(cfg *config.GameConfig, rng RandomSource) *RevealEngine {
	table := make([]decimal.Decimal, len(cfg.RowMultipliers))
	for i, m := range cfg.RowMultipliers {
		table[i] = decimal.NewFromFloat(m)
	}

	return &RevealEngine{
		rowMultipliers: table,
		rng:            rng,
		status:         models.RevealIdle,
		activeRow:      noRow,
		multiplier:     decimal.NewFromInt(1),
	}
}

// Start begins a new round. It is allowed from Idle and Finished.
func (e *RevealEngine) Start(bet int64) error {
	return e.StartRound(models.NewRoundID(models.GameTypeReveal), bet)
}

// StartRound is Start under a round ID chosen by the caller.
func (e *RevealEngine) StartRound(roundID string, bet int64) error {
	if e.status == models.RevealActive {
		return fmt.Errorf("%w: round already active", models.ErrInvalidState)
	}
	if bet < 0 {
		return fmt.Errorf("%w: negative bet %d", models.ErrInvalidAmount, bet)
	}

	for row := range e.hazards {
		e.hazards[row] = e.rng.IntN(RevealColumns)
	}

	e.roundID = roundID
	e.status = models.RevealActive
	e.outcome = models.RevealOutcomeNone
	e.activeRow = bottomRow
	e.multiplier = decimal.NewFromInt(1)
	e.bet = bet
	return nil
}

// Reveal taps column on the active row.
func (e *RevealEngine) Reveal(column int) (models.RevealStep, error) {
	if e.status != models.RevealActive {
		return models.RevealStep{}, fmt.Errorf("%w: reveal while %s", models.ErrInvalidState, e.status)
	}
	step, _, err := e.RevealAt(e.activeRow, column)
	return step, err
}

// RevealAt taps a cell by position. Taps on any row other than the active one
// are ignored and reported with accepted=false.
func (e *RevealEngine) RevealAt(row, column int) (step models.RevealStep, accepted bool, err error) {
	if e.status != models.RevealActive {
		return models.RevealStep{}, false, fmt.Errorf("%w: reveal while %s", models.ErrInvalidState, e.status)
	}
	if column < 0 || column >= RevealColumns {
		return models.RevealStep{}, false, fmt.Errorf("%w: %d", models.ErrInvalidColumn, column)
	}
	if row != e.activeRow {
		return e.step(row, column, false), false, nil
	}

	if e.hazards[row] == column {
		e.multiplier = decimal.Zero
		e.finish(models.RevealOutcomeLost)
		return e.step(row, column, true), true, nil
	}

	e.multiplier = e.multiplier.Mul(e.RowMultiplier(row))
	if row == 0 {
		e.finish(models.RevealOutcomeWon)
	} else {
		e.activeRow = row - 1
	}
	return e.step(row, column, false), true, nil
}

// CashOut locks in the current multiplier. At least one row must be cleared.
func (e *RevealEngine) CashOut() (models.RevealStep, error) {
	if e.status != models.RevealActive {
		return models.RevealStep{}, fmt.Errorf("%w: cash out while %s", models.ErrInvalidState, e.status)
	}
	if e.activeRow >= bottomRow {
		return models.RevealStep{}, fmt.Errorf("%w: no row cleared yet", models.ErrInvalidState)
	}

	row := e.activeRow
	e.finish(models.RevealOutcomeCashedOut)
	return e.step(row, noRow, false), nil
}

// Settle computes the payout of a finished round. Fractional coins are floored.
func (e *RevealEngine) Settle() (models.RevealSettlement, error) {
	if e.status != models.RevealFinished {
		return models.RevealSettlement{}, fmt.Errorf("%w: settle while %s", models.ErrInvalidState, e.status)
	}

	final := decimal.NewFromInt(e.bet).Mul(e.multiplier).Floor().IntPart()

	s := models.RevealSettlement{
		RoundID:     e.roundID,
		Outcome:     e.outcome,
		Bet:         e.bet,
		Multiplier:  e.CurrentMultiplier(),
		FinalAmount: final,
		NetGain:     final - e.bet,
	}
	if e.multiplier.GreaterThan(decimal.NewFromInt(1)) {
		s.Credit = final
	}
	return s, nil
}

// Reset discards a finished round. Resetting an idle engine is a no-op.
func (e *RevealEngine) Reset() error {
	switch e.status {
	case models.RevealActive:
		return fmt.Errorf("%w: reset while active", models.ErrInvalidState)
	case models.RevealIdle:
		return nil
	}

	e.roundID = ""
	e.status = models.RevealIdle
	e.outcome = models.RevealOutcomeNone
	e.hazards = [RevealRows]int{}
	e.activeRow = noRow
	e.multiplier = decimal.NewFromInt(1)
	e.bet = 0
	return nil
}

// RowMultiplier returns the factor applied when row is cleared.
// The table is indexed by distance from the bottom row.
func (e *RevealEngine) RowMultiplier(row int) decimal.Decimal {
	return e.rowMultipliers[bottomRow-row]
}

func (e *RevealEngine) Status() models.RevealStatus   { return e.status }
func (e *RevealEngine) Outcome() models.RevealOutcome { return e.outcome }
func (e *RevealEngine) ActiveRow() int                { return e.activeRow }
func (e *RevealEngine) Bet() int64                    { return e.bet }
func (e *RevealEngine) RoundID() string               { return e.roundID }

func (e *RevealEngine) Multiplier() decimal.Decimal { return e.multiplier }

func (e *RevealEngine) CurrentMultiplier() float64 {
	return e.multiplier.InexactFloat64()
}

// Board returns what the player may see. Cleared rows show their cells, the
// active row is highlighted and rows above it stay hidden. A finished board is
// fully visible.
func (e *RevealEngine) Board() [RevealRows][RevealColumns]models.CellState {
	var board [RevealRows][RevealColumns]models.CellState

	for row := 0; row < RevealRows; row++ {
		for col := 0; col < RevealColumns; col++ {
			switch {
			case e.status == models.RevealIdle:
				board[row][col] = models.CellHidden
			case e.status == models.RevealFinished || row > e.activeRow:
				board[row][col] = e.cell(row, col)
			case row == e.activeRow:
				board[row][col] = models.CellHighlighted
			default:
				board[row][col] = models.CellHidden
			}
		}
	}
	return board
}

func (e *RevealEngine) cell(row, col int) models.CellState {
	if e.hazards[row] == col {
		return models.CellHazard
	}
	return models.CellSafe
}

func (e *RevealEngine) finish(outcome models.RevealOutcome) {
	e.status = models.RevealFinished
	e.outcome = outcome
	e.activeRow = noRow
}

func (e *RevealEngine) step(row, column int, hazard bool) models.RevealStep {
	return models.RevealStep{
		Row:        row,
		Column:     column,
		Hazard:     hazard,
		Multiplier: e.CurrentMultiplier(),
		ActiveRow:  e.activeRow,
		Status:     e.status,
		Outcome:    e.outcome,
	}
}
