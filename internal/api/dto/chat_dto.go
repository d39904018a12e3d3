package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// OpenSessionRequest opens or resumes the caller's session with a persona.
type OpenSessionRequest struct {
	PersonaID int64 `json:"persona_id" validate:"required,gt=0"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID        int64                `json:"id"`
	UserID    int64                `json:"user_id"`
	PersonaID int64                `json:"persona_id"`
	Status    domain.SessionStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// AppendMessageRequest adds a message to a session.
type AppendMessageRequest struct {
	SessionID int64   `json:"session_id" validate:"required,gt=0"`
	Content   string  `json:"content" validate:"required,max=4000"`
	Title     *string `json:"title,omitempty" validate:"omitempty,max=200"`
	ImageURL  *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// MessageResponse describes a stored message.
type MessageResponse struct {
	ID         int64             `json:"id"`
	SessionID  int64             `json:"session_id"`
	SenderKind domain.SenderKind `json:"sender_kind"`
	SenderID   int64             `json:"sender_id"`
	Title      *string           `json:"title,omitempty"`
	Content    string            `json:"content"`
	ImageURL   *string           `json:"image_url,omitempty"`
	CreditCost int64             `json:"credit_cost"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PollResponse carries the messages after a cursor and the cursor to send next.
type PollResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NewAfterID int64             `json:"new_after_id"`
}

// RecordFootprintRequest marks a persona visit.
type RecordFootprintRequest struct {
	PersonaID int64 `json:"persona_id" validate:"required,gt=0"`
}

// FootprintResponse describes a visit marker.
type FootprintResponse struct {
	UserID    int64     `json:"user_id"`
	PersonaID int64     `json:"persona_id"`
	VisitedAt time.Time `json:"visited_at"`
}

func NewSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		PersonaID: s.PersonaID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func NewSessionResponses(sessions []domain.Session) []SessionResponse {
	return lo.Map(sessions, func(item domain.Session, _ int) SessionResponse {
		return NewSessionResponse(item)
	})
}

func NewMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SessionID:  m.SessionID,
		SenderKind: m.SenderKind,
		SenderID:   m.SenderID,
		Title:      m.Title,
		Content:    m.Content,
		ImageURL:   m.ImageURL,
		CreditCost: m.CreditCost,
		CreatedAt:  m.CreatedAt,
	}
}

func NewPollResponse(messages []domain.Message, newAfterID int64) PollResponse {
	return PollResponse{
		Messages: lo.Map(messages, func(item domain.Message, _ int) MessageResponse {
			return NewMessageResponse(item)
		}),
		NewAfterID: newAfterID,
	}
}

func NewFootprintResponses(footprints []domain.Footprint) []FootprintResponse {
	return lo.Map(footprints, func(item domain.Footprint, _ int) FootprintResponse {
		return FootprintResponse{UserID: item.UserID, PersonaID: item.PersonaID, VisitedAt: item.CreatedAt}
	})
}
