package domain

import "time"

// LedgerReason classifies why a balance changed.
type LedgerReason string

const (
	LedgerReasonMessage LedgerReason = "message"
	LedgerReasonCharge  LedgerReason = "charge"
	LedgerReasonGrant   LedgerReason = "grant"
	LedgerReasonDebit   LedgerReason = "debit"
)

// LedgerEntry records one applied balance delta. Entries are written in the
// same transaction as the balance mutation they describe.
type LedgerEntry struct {
	ID           int64        `db:"id"`
	UserID       int64        `db:"user_id"`
	Delta        int64        `db:"delta"`
	BalanceAfter int64        `db:"balance_after"`
	Reason       LedgerReason `db:"reason"`
	ReferenceID  *int64       `db:"reference_id"`
	CreatedAt    time.Time    `db:"created_at"`
}
