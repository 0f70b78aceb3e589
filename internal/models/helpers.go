package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

func NewRoundID(gameType GameType) string {
	return fmt.Sprintf("%s_%s_%d",
		gameType,
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func NewTransactionID() string {
	return uuid.New().String()
}

// DayKey returns the calendar day of t in t's own location.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day as seen from b's location.
func SameDay(a, b time.Time) bool {
	return DayKey(a.In(b.Location())) == DayKey(b)
}

func (c ClaimCategory) Valid() bool {
	switch c {
	case ClaimCoins, ClaimSpins:
		return true
	}
	return false
}
