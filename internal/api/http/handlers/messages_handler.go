package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/service"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// HeaderIdempotencyKey deduplicates retried appends.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// MessagesHandler exposes append and poll.
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

// Append handles POST /messages.
func (h *MessagesHandler) Append(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.AppendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := service.AppendInput{
		SessionID: req.SessionID,
		Content:   req.Content,
		Title:     req.Title,
		ImageURL:  req.ImageURL,
	}
	if key := c.Get(HeaderIdempotencyKey); key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return apperrors.NewValidationError("idempotency key too long", map[string]any{"max": maxIdempotencyKeyLen})
		}
		in.IdempotencyKey = &key
	}

	msg, err := h.messages.Append(c.UserContext(), caller, in)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewMessageResponse(*msg))
}

// Poll handles GET /messages?session_id=&after_id=.
func (h *MessagesHandler) Poll(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	sessionID, err := queryInt64(c, "session_id", true)
	if err != nil {
		return err
	}
	afterID, err := queryInt64(c, "after_id", false)
	if err != nil {
		return err
	}

	result, err := h.messages.Poll(c.UserContext(), caller, sessionID, afterID)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPollResponse(result.Messages, result.NewAfterID))
}
