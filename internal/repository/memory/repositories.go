package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	defer r.s.guard()()
	for _, existing := range r.s.data.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	if user.CreditBalance < 0 {
		return repository.ErrInsufficientBalance
	}
	now := r.s.now()
	user.ID = r.s.data.next("users")
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	defer r.s.guard()()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.s.guard()()
	for _, user := range r.s.data.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type staffRepository struct{ s *Store }

func (r *staffRepository) Create(_ context.Context, staff *domain.StaffMember) error {
	defer r.s.guard()()
	for _, existing := range r.s.data.staff {
		if existing.Email == staff.Email {
			return repository.ErrConflict
		}
	}
	now := r.s.now()
	staff.ID = r.s.data.next("staff_members")
	staff.CreatedAt, staff.UpdatedAt = now, now
	r.s.data.staff[staff.ID] = *staff
	return nil
}

func (r *staffRepository) GetByID(_ context.Context, id int64) (*domain.StaffMember, error) {
	defer r.s.guard()()
	staff, ok := r.s.data.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &staff, nil
}

func (r *staffRepository) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	defer r.s.guard()()
	for _, staff := range r.s.data.staff {
		if staff.Email == email {
			return &staff, nil
		}
	}
	return nil, repository.ErrNotFound
}

type personaRepository struct{ s *Store }

func (r *personaRepository) Create(_ context.Context, persona *domain.Persona) error {
	defer r.s.guard()()
	if _, ok := r.s.data.staff[persona.StaffID]; !ok {
		return repository.ErrReferenceMissing
	}
	now := r.s.now()
	persona.ID = r.s.data.next("personas")
	persona.CreatedAt, persona.UpdatedAt = now, now
	r.s.data.personas[persona.ID] = *persona
	return nil
}

func (r *personaRepository) GetByID(_ context.Context, id int64) (*domain.Persona, error) {
	defer r.s.guard()()
	persona, ok := r.s.data.personas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &persona, nil
}

func (r *personaRepository) Update(_ context.Context, persona *domain.Persona) error {
	defer r.s.guard()()
	current, ok := r.s.data.personas[persona.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Name, current.Bio, current.IsActive = persona.Name, persona.Bio, persona.IsActive
	current.UpdatedAt = r.s.now()
	r.s.data.personas[persona.ID] = current
	persona.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *personaRepository) List(_ context.Context, filter repository.PersonaFilter) ([]domain.Persona, error) {
	defer r.s.guard()()
	var result []domain.Persona
	for _, persona := range r.s.data.personas {
		if filter.StaffID != nil && persona.StaffID != *filter.StaffID {
			continue
		}
		if filter.ActiveOnly && !persona.IsActive {
			continue
		}
		result = append(result, persona)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return page(result, filter.Limit, filter.Offset, 20, 100), nil
}

type ledgerRepository struct{ s *Store }

func (r *ledgerRepository) Balance(_ context.Context, userID int64) (int64, error) {
	defer r.s.guard()()
	user, ok := r.s.data.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return user.CreditBalance, nil
}

func (r *ledgerRepository) Debit(_ context.Context, userID, amount int64) (int64, error) {
	defer r.s.guard()()
	user, ok := r.s.data.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if user.CreditBalance < amount {
		return 0, repository.ErrInsufficientBalance
	}
	user.CreditBalance -= amount
	user.UpdatedAt = r.s.now()
	r.s.data.users[userID] = user
	return user.CreditBalance, nil
}

func (r *ledgerRepository) Credit(_ context.Context, userID, amount int64) (int64, error) {
	defer r.s.guard()()
	user, ok := r.s.data.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if amount > math.MaxInt64-user.CreditBalance {
		return 0, repository.ErrBalanceOverflow
	}
	user.CreditBalance += amount
	user.UpdatedAt = r.s.now()
	r.s.data.users[userID] = user
	return user.CreditBalance, nil
}

func (r *ledgerRepository) AddEntry(_ context.Context, entry *domain.LedgerEntry) error {
	defer r.s.guard()()
	if _, ok := r.s.data.users[entry.UserID]; !ok {
		return repository.ErrReferenceMissing
	}
	entry.ID = r.s.data.next("ledger_entries")
	entry.CreatedAt = r.s.now()
	r.s.data.ledger = append(r.s.data.ledger, *entry)
	return nil
}

func (r *ledgerRepository) ListEntries(_ context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, error) {
	defer r.s.guard()()
	var entries []domain.LedgerEntry
	for i := len(r.s.data.ledger) - 1; i >= 0; i-- {
		if r.s.data.ledger[i].UserID == userID {
			entries = append(entries, r.s.data.ledger[i])
		}
	}
	return page(entries, limit, offset, 50, 200), nil
}

type sessionRepository struct{ s *Store }

func (r *sessionRepository) CreateActive(_ context.Context, session *domain.Session) error {
	defer r.s.guard()()
	if _, ok := r.s.data.users[session.UserID]; !ok {
		return repository.ErrReferenceMissing
	}
	if _, ok := r.s.data.personas[session.PersonaID]; !ok {
		return repository.ErrReferenceMissing
	}
	if _, ok := r.activePair(session.UserID, session.PersonaID); ok {
		return repository.ErrConflict
	}
	session.ID = r.s.data.next("sessions")
	session.Status = domain.SessionStatusActive
	session.UpdatedAt = session.CreatedAt
	r.s.data.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepository) activePair(userID, personaID int64) (domain.Session, bool) {
	for _, session := range r.s.data.sessions {
		if session.UserID == userID && session.PersonaID == personaID && session.IsActive() {
			return session, true
		}
	}
	return domain.Session{}, false
}

func (r *sessionRepository) GetByID(_ context.Context, id int64) (*domain.Session, error) {
	defer r.s.guard()()
	session, ok := r.s.data.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

// LockByID is GetByID: the store lock already serializes transactions.
func (r *sessionRepository) LockByID(ctx context.Context, id int64) (*domain.Session, error) {
	return r.GetByID(ctx, id)
}

func (r *sessionRepository) GetActiveByPair(_ context.Context, userID, personaID int64) (*domain.Session, error) {
	defer r.s.guard()()
	session, ok := r.activePair(userID, personaID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepository) Close(_ context.Context, id int64, at time.Time) (*domain.Session, error) {
	defer r.s.guard()()
	session, ok := r.s.data.sessions[id]
	if !ok || !session.IsActive() {
		return nil, repository.ErrNotFound
	}
	session.Status = domain.SessionStatusClosed
	session.UpdatedAt = at
	r.s.data.sessions[id] = session
	return &session, nil
}

func (r *sessionRepository) Touch(_ context.Context, id int64, at time.Time) error {
	defer r.s.guard()()
	session, ok := r.s.data.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.UpdatedAt = at
	r.s.data.sessions[id] = session
	return nil
}

func (r *sessionRepository) List(_ context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	defer r.s.guard()()
	var result []domain.Session
	for _, session := range r.s.data.sessions {
		if filter.UserID != nil && session.UserID != *filter.UserID {
			continue
		}
		if filter.OwnerStaffID != nil {
			persona, ok := r.s.data.personas[session.PersonaID]
			if !ok || persona.StaffID != *filter.OwnerStaffID {
				continue
			}
		}
		if filter.Status != nil && session.Status != *filter.Status {
			continue
		}
		result = append(result, session)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return page(result, filter.Limit, filter.Offset, 20, 100), nil
}

type messageRepository struct{ s *Store }

func (r *messageRepository) Create(_ context.Context, msg *domain.Message) error {
	defer r.s.guard()()
	if _, ok := r.s.data.sessions[msg.SessionID]; !ok {
		return repository.ErrReferenceMissing
	}
	if msg.IdempotencyKey != nil {
		if _, ok := r.byKey(msg.SessionID, msg.SenderKind, *msg.IdempotencyKey); ok {
			return repository.ErrConflict
		}
	}
	msg.ID = r.s.data.next("messages")
	r.s.data.messages = append(r.s.data.messages, *msg)
	return nil
}

func (r *messageRepository) byKey(sessionID int64, kind domain.SenderKind, key string) (domain.Message, bool) {
	for _, msg := range r.s.data.messages {
		if msg.SessionID == sessionID && msg.SenderKind == kind && msg.IdempotencyKey != nil && *msg.IdempotencyKey == key {
			return msg, true
		}
	}
	return domain.Message{}, false
}

// ListAfter relies on messages being appended in id order.
func (r *messageRepository) ListAfter(_ context.Context, sessionID, afterID int64) ([]domain.Message, error) {
	defer r.s.guard()()
	result := []domain.Message{}
	for _, msg := range r.s.data.messages {
		if msg.SessionID == sessionID && msg.ID > afterID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *messageRepository) GetByIdempotencyKey(_ context.Context, sessionID int64, kind domain.SenderKind, key string) (*domain.Message, error) {
	defer r.s.guard()()
	msg, ok := r.byKey(sessionID, kind, key)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &msg, nil
}

type invitationRepository struct{ s *Store }

func (r *invitationRepository) Create(_ context.Context, token *domain.InvitationToken) error {
	defer r.s.guard()()
	if _, ok := r.s.data.invitations[token.Token]; ok {
		return repository.ErrConflict
	}
	if _, ok := r.s.data.staff[token.CreatedBy]; !ok {
		return repository.ErrReferenceMissing
	}
	token.ID = r.s.data.next("invitation_tokens")
	r.s.data.invitations[token.Token] = *token
	return nil
}

func (r *invitationRepository) GetByToken(_ context.Context, tokenStr string) (*domain.InvitationToken, error) {
	defer r.s.guard()()
	token, ok := r.s.data.invitations[tokenStr]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &token, nil
}

// LockByToken is GetByToken: the store lock already serializes transactions.
func (r *invitationRepository) LockByToken(ctx context.Context, tokenStr string) (*domain.InvitationToken, error) {
	return r.GetByToken(ctx, tokenStr)
}

func (r *invitationRepository) Redeem(_ context.Context, tokenStr string, userID int64, now time.Time) (*domain.InvitationToken, error) {
	defer r.s.guard()()
	token, ok := r.s.data.invitations[tokenStr]
	if !ok || token.UsedAt != nil || now.After(token.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	if _, ok := r.s.data.users[userID]; !ok {
		return nil, repository.ErrReferenceMissing
	}
	usedAt, usedBy := now, userID
	token.UsedAt, token.UsedBy = &usedAt, &usedBy
	r.s.data.invitations[tokenStr] = token
	return &token, nil
}

func (r *invitationRepository) List(_ context.Context, limit, offset int) ([]domain.InvitationToken, error) {
	defer r.s.guard()()
	result := make([]domain.InvitationToken, 0, len(r.s.data.invitations))
	for _, token := range r.s.data.invitations {
		result = append(result, token)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return page(result, limit, offset, 50, 200), nil
}

type footprintRepository struct{ s *Store }

func (r *footprintRepository) Upsert(_ context.Context, userID, personaID int64, at time.Time) (*domain.Footprint, error) {
	defer r.s.guard()()
	if _, ok := r.s.data.users[userID]; !ok {
		return nil, repository.ErrReferenceMissing
	}
	if _, ok := r.s.data.personas[personaID]; !ok {
		return nil, repository.ErrReferenceMissing
	}
	key := pairKey{userID: userID, personaID: personaID}
	fp, ok := r.s.data.footprints[key]
	if !ok {
		fp = domain.Footprint{ID: r.s.data.next("footprints"), UserID: userID, PersonaID: personaID, CreatedAt: at}
	} else if at.After(fp.CreatedAt) {
		fp.CreatedAt = at
	}
	r.s.data.footprints[key] = fp
	return &fp, nil
}

func (r *footprintRepository) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Footprint, error) {
	return r.list(func(fp domain.Footprint) bool { return fp.UserID == userID }, limit, offset)
}

func (r *footprintRepository) ListByPersona(_ context.Context, personaID int64, limit, offset int) ([]domain.Footprint, error) {
	return r.list(func(fp domain.Footprint) bool { return fp.PersonaID == personaID }, limit, offset)
}

func (r *footprintRepository) list(match func(domain.Footprint) bool, limit, offset int) ([]domain.Footprint, error) {
	defer r.s.guard()()
	var result []domain.Footprint
	for _, fp := range r.s.data.footprints {
		if match(fp) {
			result = append(result, fp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return page(result, limit, offset, 20, 100), nil
}
