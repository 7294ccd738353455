package domain

import (
	"time"

	"github.com/google/uuid"
)

type AcknowledgmentType string

const (
	AckDirectJoin       AcknowledgmentType = "direct_join"
	AckInvitationLink   AcknowledgmentType = "invitation_link"
	AckScheduledSession AcknowledgmentType = "scheduled_session"
	AckEmergencyJoin    AcknowledgmentType = "emergency_join"
)

// ConsentFlags are each independently settable; absence of one never
// implies another.
type ConsentFlags struct {
	Participation     bool `json:"participation"`
	Recording         bool `json:"recording"`
	AIModeration      bool `json:"ai_moderation"`
	EmergencyProtocol bool `json:"emergency_protocol"`
	DataProcessing    bool `json:"data_processing"`
}

// ParticipationStats accumulate over the life of the session.
type ParticipationStats struct {
	MessageCount    int           `json:"message_count"`
	VoiceActiveTime time.Duration `json:"voice_active_time"`
	HandsRaised     int           `json:"hands_raised"`
	Reactions       int           `json:"reactions"`
	ModerationFlags int           `json:"moderation_flags"`
}

// Acknowledgment records one user's consent and participation in one
// session. At most one exists per (session, user) pair. It outlives the
// session for a bounded retention window.
type Acknowledgment struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	UserID        uuid.UUID
	Type          AcknowledgmentType
	Consents      ConsentFlags
	VoiceSettings VoiceSettings
	Stats         ParticipationStats
	ExitReason    string
	Feedback      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewAcknowledgment(sessionID, userID uuid.UUID, ackType AcknowledgmentType, consents ConsentFlags) *Acknowledgment {
	now := time.Now().UTC()
	return &Acknowledgment{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Type:      ackType,
		Consents:  consents,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the update timestamp after any in-session mutation.
func (a *Acknowledgment) Touch() {
	a.UpdatedAt = time.Now().UTC()
}
