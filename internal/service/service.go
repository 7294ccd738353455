package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrCapacityExceeded    = errors.New("session capacity exceeded")
	ErrConsentRequired     = errors.New("consent required before joining")
	ErrSessionExpired      = errors.New("session expired")
	ErrParticipantNotFound = errors.New("participant not found")
)

// CreateSessionParams is the host's creation request after transport
// decoding.
type CreateSessionParams struct {
	Topic             string
	Description       string
	Emoji             string
	HostID            uuid.UUID
	HostAlias         string
	ScheduledAt       *time.Time
	EstimatedDuration time.Duration
	MaxParticipants   int
	ModerationLevel   domain.ModerationLevel

	AllowAnonymous          bool
	AudioOnly               bool
	ModerationEnabled       bool
	EmergencyContactEnabled bool
	AIMonitoring            bool
	IsRecorded              bool
}

// JoinRequest identifies who is trying to enter a session. A nil UserID
// is an anonymous join.
type JoinRequest struct {
	UserID uuid.UUID
	Alias  string
}

// JoinResult is either an admission (Participant set) or a scheduling
// notice (Scheduled set) for sessions outside their join window.
type JoinResult struct {
	Scheduled      bool
	TimeUntilStart time.Duration
	ScheduledAt    *time.Time
	Session        *domain.Session
	Participant    *domain.Participant
}

// SessionStatusInfo is the public status snapshot of a session.
type SessionStatusInfo struct {
	Status              domain.SessionStatus `json:"status"`
	IsScheduled         bool                 `json:"is_scheduled"`
	ScheduledAt         *time.Time           `json:"scheduled_date_time,omitempty"`
	TimeUntilStart      time.Duration        `json:"time_until_start"`
	CanJoin             bool                 `json:"can_join"`
	JoinMessage         string               `json:"join_message"`
	CurrentParticipants int                  `json:"current_participants"`
	MaxParticipants     int                  `json:"max_participants"`
	IsFull              bool                 `json:"is_full"`
}

type SessionInteractor interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*domain.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	SessionStatus(ctx context.Context, id uuid.UUID) (*SessionStatusInfo, error)
	Join(ctx context.Context, sessionID uuid.UUID, req JoinRequest) (*JoinResult, error)
	Leave(ctx context.Context, sessionID uuid.UUID, participantID, reason string) error
	End(ctx context.Context, sessionID, actorUserID uuid.UUID) error
	HandleSignal(ctx context.Context, sessionID uuid.UUID, participantID string, message *domain.SignalMessage) error
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participant, error)
	ActiveAlerts(ctx context.Context, sessionID uuid.UUID) ([]domain.EmergencyAlert, error)
}

// CreateInvitationParams carries invitation creation input.
type CreateInvitationParams struct {
	SessionID    uuid.UUID
	CreatedBy    uuid.UUID
	MaxUses      int
	ExpiryHours  int
	Restrictions domain.InvitationRestrictions
	Settings     domain.InvitationSettings
}

// RedeemRequest is one redemption attempt.
type RedeemRequest struct {
	UserID        uuid.UUID // Nil for anonymous redeemers
	Alias         string
	Acknowledged  bool
	Consents      domain.ConsentFlags
	VoiceSettings *domain.VoiceSettings
	IP            string
	UserAgent     string
}

type RedeemOutcome string

const (
	OutcomeScheduled              RedeemOutcome = "scheduled"
	OutcomeRequiresAcknowledgment RedeemOutcome = "requires_acknowledgment"
	OutcomeAcknowledged           RedeemOutcome = "acknowledged"
)

// ConsentRequirements enumerate which consents the session demands.
type ConsentRequirements struct {
	Participation     bool `json:"participation_consent"`
	Recording         bool `json:"recording_consent"`
	AIModeration      bool `json:"ai_moderation_consent"`
	EmergencyProtocol bool `json:"emergency_protocol_consent"`
}

// RedeemResult is a three-way discriminated outcome; only the
// acknowledged shape consumes an invitation use.
type RedeemResult struct {
	Outcome         RedeemOutcome
	Session         *domain.Session
	TimeUntilStart  time.Duration
	WelcomeMessage  string
	ConsentRequired *ConsentRequirements
	Acknowledgment  *domain.Acknowledgment
	ChannelToken    string
	AutoJoin        bool
}

// InvitePreview is the read-only view behind an invitation code. It
// never consumes a use.
type InvitePreview struct {
	Session         *domain.Session
	TimeUntilStart  time.Duration
	WelcomeMessage  string
	ConsentRequired *ConsentRequirements
	AutoJoin        bool
}

type InviteInteractor interface {
	CreateInvitation(ctx context.Context, params CreateInvitationParams) (*domain.Invitation, error)
	Preview(ctx context.Context, code string) (*InvitePreview, error)
	Redeem(ctx context.Context, code string, req RedeemRequest) (*RedeemResult, error)
}

type VoiceInteractor interface {
	UpdateSettings(ctx context.Context, sessionID uuid.UUID, participantID string, settings domain.VoiceSettings) (domain.VoiceSettings, error)
	GetSettings(ctx context.Context, sessionID uuid.UUID, participantID string) (domain.VoiceSettings, error)
	Synthesize(ctx context.Context, sessionID uuid.UUID, participantID, text string) ([]byte, error)
}
