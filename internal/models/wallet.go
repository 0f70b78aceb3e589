package models

import "time"

// Wallet is the persisted coin and spin state of the single local player.
type Wallet struct {
	Balance        int64 `json:"balance" redis:"balance"`
	SpinsRemaining int64 `json:"spins_remaining" redis:"spins_remaining"`
	TotalWagered   int64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon       int64 `json:"total_won" redis:"total_won"`
}

type TransactionType string

const (
	TransactionTypeBet   TransactionType = "bet"
	TransactionTypeWin   TransactionType = "win"
	TransactionTypeBonus TransactionType = "bonus"
)

type Transaction struct {
	ID            string          `json:"id" redis:"id"`
	Type          TransactionType `json:"type" redis:"type"`
	Amount        int64           `json:"amount" redis:"amount"`
	BalanceBefore int64           `json:"balance_before" redis:"balance_before"`
	BalanceAfter  int64           `json:"balance_after" redis:"balance_after"`
	RoundID       string          `json:"round_id,omitempty" redis:"round_id,omitempty"`
	Description   string          `json:"description" redis:"description"`
	CreatedAt     time.Time       `json:"created_at" redis:"created_at"`
}

// ClaimCategory names an independently tracked daily bonus bucket.
type ClaimCategory string

const (
	ClaimCoins ClaimCategory = "coins"
	ClaimSpins ClaimCategory = "spins"
)

type ClaimResult struct {
	Category       ClaimCategory `json:"category"`
	AlreadyClaimed bool          `json:"already_claimed"`
	Day            string        `json:"day"`
	Granted        int64         `json:"granted"`
}
