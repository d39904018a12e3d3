package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/service"
)

// CreditsHandler exposes the ledger.
type CreditsHandler struct {
	ledger *service.LedgerService
}

// NewCreditsHandler constructs handler.
func NewCreditsHandler(ledger *service.LedgerService) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// Balance handles GET /credits/balance.
func (h *CreditsHandler) Balance(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	balance, err := h.ledger.Balance(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.BalanceResponse{UserID: caller.ID, Balance: balance})
}

// Entries handles GET /credits/entries.
func (h *CreditsHandler) Entries(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	entries, err := h.ledger.Entries(c.UserContext(), caller.ID, limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewLedgerEntryResponses(entries))
}

// Charge handles POST /credits/charge.
func (h *CreditsHandler) Charge(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	balance, err := h.ledger.Charge(c.UserContext(), caller, req.Amount)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.BalanceResponse{UserID: caller.ID, Balance: balance})
}

// Grant handles POST /admin/credits/:user_id/grant.
func (h *CreditsHandler) Grant(c *fiber.Ctx) error {
	return h.adjust(c, h.ledger.Credit)
}

// Debit handles POST /admin/credits/:user_id/debit.
func (h *CreditsHandler) Debit(c *fiber.Ctx) error {
	return h.adjust(c, h.ledger.Debit)
}

type adjustFunc func(ctx context.Context, caller domain.Caller, userID, amount int64) (int64, error)

func (h *CreditsHandler) adjust(c *fiber.Ctx, apply adjustFunc) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	userID, err := paramID(c, "user_id")
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	balance, err := apply(c.UserContext(), caller, userID, req.Amount)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.BalanceResponse{UserID: userID, Balance: balance})
}
