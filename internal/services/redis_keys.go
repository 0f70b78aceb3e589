package services

import "time"

const (
	KeyWallet       = "spinroyale:%s:wallet"
	KeyClaims       = "spinroyale:%s:claims"
	KeyTransaction  = "spinroyale:transaction:%s"
	KeyTransactions = "spinroyale:%s:transactions"

	TTLTransaction = 30 * 24 * time.Hour // 30 days

	MaxStoredTransactions = 100
)
