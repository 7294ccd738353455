package model

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Topic             string     `gorm:"size:255;not null"`
	Description       string     `gorm:"size:2000"`
	Emoji             string     `gorm:"size:16"`
	HostID            uuid.UUID  `gorm:"type:uuid;not null"`
	HostAlias         string     `gorm:"size:255;not null"`
	Status            string     `gorm:"size:32;not null;index"`
	ScheduledAt       *time.Time `gorm:"index"`
	EstimatedDuration int64      `gorm:"not null"` // nanoseconds
	StartedAt         *time.Time
	EndedAt           *time.Time
	ExpiresAt         time.Time `gorm:"not null;index"`
	MaxParticipants   int       `gorm:"not null"`
	ModerationLevel   string    `gorm:"size:16;not null"`

	AllowAnonymous          bool `gorm:"not null"`
	AudioOnly               bool `gorm:"not null"`
	ModerationEnabled       bool `gorm:"not null"`
	EmergencyContactEnabled bool `gorm:"not null"`
	AIMonitoring            bool `gorm:"not null"`
	IsRecorded              bool `gorm:"not null"`

	CreatedAt    time.Time     `gorm:"not null"`
	Participants []Participant `gorm:"constraint:OnDelete:CASCADE"`
}

type Participant struct {
	ID           string    `gorm:"size:64;primaryKey"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID       uuid.UUID `gorm:"type:uuid;index"`
	Alias        string    `gorm:"size:255;not null"`
	IsHost       bool      `gorm:"not null"`
	IsModerator  bool      `gorm:"not null"`
	IsBlocked    bool      `gorm:"not null"`
	IsMuted      bool      `gorm:"not null"`
	HandRaised   bool      `gorm:"not null"`
	Status       string    `gorm:"size:32;not null"`
	JoinedAt     time.Time `gorm:"not null"`
	SpeakingTime int64     `gorm:"not null"` // nanoseconds
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Invitation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Code         string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	MaxUses      int       `gorm:"not null"`
	CurrentUses  int       `gorm:"not null"`
	Restrictions string    `gorm:"type:jsonb;not null"`
	Settings     string    `gorm:"type:jsonb;not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	ExpiresAt    *time.Time
	Uses         []InvitationUse `gorm:"constraint:OnDelete:CASCADE"`
}

// InvitationUse rows are append-only; redemptions only ever add.
type InvitationUse struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	InvitationID uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID       uuid.UUID `gorm:"type:uuid"`
	IP           string    `gorm:"size:64"`
	UserAgent    string    `gorm:"size:512"`
	Timestamp    time.Time `gorm:"not null"`
	Acknowledged bool      `gorm:"not null"`
}

type Acknowledgment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_acks_session_user"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_acks_session_user"`
	Type          string    `gorm:"size:32;not null"`
	Consents      string    `gorm:"type:jsonb;not null"`
	VoiceSettings string    `gorm:"type:jsonb;not null"`
	Stats         string    `gorm:"type:jsonb;not null"`
	ExitReason    string    `gorm:"size:255"`
	Feedback      string    `gorm:"size:4000"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}
