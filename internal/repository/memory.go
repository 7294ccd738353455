package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[uuid.UUID]*domain.Session),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

func (r *InMemorySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}

	r.sessions[session.ID] = session
	return nil
}

func (r *InMemorySessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}

	delete(r.sessions, id)
	return nil
}

func (r *InMemorySessionRepository) List(ctx context.Context) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		result = append(result, session)
	}
	return result, nil
}

type InMemoryInvitationRepository struct {
	mu          sync.RWMutex
	invitations map[uuid.UUID]*domain.Invitation
	codes       map[string]uuid.UUID
}

func NewInMemoryInvitationRepository() *InMemoryInvitationRepository {
	return &InMemoryInvitationRepository{
		invitations: make(map[uuid.UUID]*domain.Invitation),
		codes:       make(map[string]uuid.UUID),
	}
}

func (r *InMemoryInvitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codes[invitation.Code]; ok {
		return ErrInviteCodeExists
	}

	r.invitations[invitation.ID] = invitation
	r.codes[invitation.Code] = invitation.ID
	return nil
}

func (r *InMemoryInvitationRepository) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, ErrInvitationNotFound
	}

	invitation, ok := r.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}

	return invitation, nil
}

func (r *InMemoryInvitationRepository) Update(ctx context.Context, invitation *domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invitations[invitation.ID]; !ok {
		return ErrInvitationNotFound
	}

	r.invitations[invitation.ID] = invitation
	r.codes[invitation.Code] = invitation.ID
	return nil
}

func (r *InMemoryInvitationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Invitation, 0)
	for _, invitation := range r.invitations {
		if invitation.SessionID == sessionID {
			result = append(result, invitation)
		}
	}
	return result, nil
}

type ackKey struct {
	sessionID uuid.UUID
	userID    uuid.UUID
}

type InMemoryAcknowledgmentRepository struct {
	mu   sync.RWMutex
	acks map[ackKey]*domain.Acknowledgment
}

func NewInMemoryAcknowledgmentRepository() *InMemoryAcknowledgmentRepository {
	return &InMemoryAcknowledgmentRepository{
		acks: make(map[ackKey]*domain.Acknowledgment),
	}
}

func (r *InMemoryAcknowledgmentRepository) Create(ctx context.Context, ack *domain.Acknowledgment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := ackKey{sessionID: ack.SessionID, userID: ack.UserID}
	if _, ok := r.acks[key]; ok {
		return ErrAcknowledgmentExists
	}

	r.acks[key] = ack
	return nil
}

func (r *InMemoryAcknowledgmentRepository) GetBySessionAndUser(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ack, ok := r.acks[ackKey{sessionID: sessionID, userID: userID}]
	if !ok {
		return nil, ErrAcknowledgmentNotFound
	}

	return ack, nil
}

func (r *InMemoryAcknowledgmentRepository) Update(ctx context.Context, ack *domain.Acknowledgment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := ackKey{sessionID: ack.SessionID, userID: ack.UserID}
	if _, ok := r.acks[key]; !ok {
		return ErrAcknowledgmentNotFound
	}

	r.acks[key] = ack
	return nil
}

func (r *InMemoryAcknowledgmentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Acknowledgment, 0)
	for key, ack := range r.acks {
		if key.sessionID == sessionID {
			result = append(result, ack)
		}
	}
	return result, nil
}
