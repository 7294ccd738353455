package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

type SessionResponse struct {
	ID              uuid.UUID              `json:"id"`
	Topic           string                 `json:"topic"`
	Description     string                 `json:"description,omitempty"`
	Emoji           string                 `json:"emoji,omitempty"`
	HostAlias       string                 `json:"host_alias"`
	Status          domain.SessionStatus   `json:"status"`
	ScheduledAt     *time.Time             `json:"scheduled_date_time,omitempty"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	MaxParticipants int                    `json:"max_participants"`
	Participants    []ParticipantResponse  `json:"participants"`
	ModerationLevel domain.ModerationLevel `json:"moderation_level"`
	AllowAnonymous  bool                   `json:"allow_anonymous"`
	AudioOnly       bool                   `json:"audio_only"`
	IsRecorded      bool                   `json:"is_recorded"`
	CreatedAt       time.Time              `json:"created_at"`
	ExpiresAt       time.Time              `json:"expires_at"`
	IsExpired       bool                   `json:"is_expired"`
}

type ParticipantResponse struct {
	ID          string                  `json:"id"`
	Alias       string                  `json:"alias"`
	IsHost      bool                    `json:"is_host"`
	IsModerator bool                    `json:"is_moderator"`
	IsMuted     bool                    `json:"is_muted"`
	HandRaised  bool                    `json:"hand_raised"`
	Status      domain.ConnectionStatus `json:"status"`
	JoinedAt    time.Time               `json:"joined_at"`
}

type InvitationResponse struct {
	Code        string     `json:"code"`
	SessionID   uuid.UUID  `json:"session_id"`
	MaxUses     int        `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func SessionToApi(s *domain.Session) *SessionResponse {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()

	participants := make([]ParticipantResponse, 0, len(s.Participants))
	for _, p := range s.Participants {
		participants = append(participants, ParticipantToApi(p))
	}

	resp := &SessionResponse{
		ID:              s.ID,
		Topic:           s.Topic,
		Description:     s.Description,
		Emoji:           s.Emoji,
		HostAlias:       s.HostAlias,
		Status:          s.Status,
		ScheduledAt:     s.ScheduledAt,
		MaxParticipants: s.MaxParticipants,
		Participants:    participants,
		ModerationLevel: s.ModerationLevel,
		AllowAnonymous:  s.AllowAnonymous,
		AudioOnly:       s.AudioOnly,
		IsRecorded:      s.IsRecorded,
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
		IsExpired:       s.IsExpired(),
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		resp.StartedAt = &started
	}
	return resp
}

func ParticipantToApi(p *domain.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:          p.ID,
		Alias:       p.Alias,
		IsHost:      p.IsHost,
		IsModerator: p.IsModerator,
		IsMuted:     p.IsMuted,
		HandRaised:  p.HandRaised,
		Status:      p.Status,
		JoinedAt:    p.JoinedAt,
	}
}

func InvitationToApi(i *domain.Invitation) *InvitationResponse {
	resp := &InvitationResponse{
		Code:        i.Code,
		SessionID:   i.SessionID,
		MaxUses:     i.MaxUses,
		CurrentUses: i.CurrentUses,
		IsActive:    i.IsActive,
		CreatedAt:   i.CreatedAt,
	}
	if !i.ExpiresAt.IsZero() {
		expires := i.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp
}
