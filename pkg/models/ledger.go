package models

import "time"

type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// LedgerEntry is an append-only wallet movement. The balance of a user is the
// BalanceAfter of their latest entry.
type LedgerEntry struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	Type           EntryType      `json:"type"`
	Amount         int64          `json:"amount"`
	BalanceAfter   int64          `json:"balance_after"`
	Reason         string         `json:"reason"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
