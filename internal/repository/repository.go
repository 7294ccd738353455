package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvitationNotFound     = errors.New("invitation not found")
	ErrInviteCodeExists       = errors.New("invite code already exists")
	ErrAcknowledgmentNotFound = errors.New("acknowledgment not found")
	ErrAcknowledgmentExists   = errors.New("acknowledgment already exists for this user and session")
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Session, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) error
	GetByCode(ctx context.Context, code string) (*domain.Invitation, error)
	Update(ctx context.Context, invitation *domain.Invitation) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Invitation, error)
}

type AcknowledgmentRepository interface {
	Create(ctx context.Context, ack *domain.Acknowledgment) error
	GetBySessionAndUser(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Acknowledgment, error)
	Update(ctx context.Context, ack *domain.Acknowledgment) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Acknowledgment, error)
}
