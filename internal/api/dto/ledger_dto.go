package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// AmountRequest carries a credit amount. Sign checks happen in the ledger so
// the INVALID_AMOUNT code reaches the caller.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// BalanceResponse reports a user's balance.
type BalanceResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

// LedgerEntryResponse describes one balance change.
type LedgerEntryResponse struct {
	ID           int64               `json:"id"`
	Delta        int64               `json:"delta"`
	BalanceAfter int64               `json:"balance_after"`
	Reason       domain.LedgerReason `json:"reason"`
	ReferenceID  *int64              `json:"reference_id,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func NewLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	return lo.Map(entries, func(item domain.LedgerEntry, _ int) LedgerEntryResponse {
		return LedgerEntryResponse{
			ID:           item.ID,
			Delta:        item.Delta,
			BalanceAfter: item.BalanceAfter,
			Reason:       item.Reason,
			ReferenceID:  item.ReferenceID,
			CreatedAt:    item.CreatedAt,
		}
	})
}
