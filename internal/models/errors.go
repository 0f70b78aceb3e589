package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoSpinsLeft       = errors.New("no spins left")
	ErrInvalidState      = errors.New("invalid game state")
	ErrInvalidColumn     = fmt.Errorf("%w: column out of range", ErrInvalidState)
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownCategory   = errors.New("unknown claim category")
	ErrPayoutPending     = errors.New("payout pending")
)
