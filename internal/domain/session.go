package domain

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusEnded     SessionStatus = "ended"
)

type ModerationLevel string

const (
	ModerationLow    ModerationLevel = "low"
	ModerationMedium ModerationLevel = "medium"
	ModerationHigh   ModerationLevel = "high"
	ModerationStrict ModerationLevel = "strict"
)

const (
	// Sessions without a schedule live for a day.
	immediateSessionLifetime = 24 * time.Hour
	// Scheduled sessions get a grace window past their estimated end.
	scheduledSessionGrace = 120 * time.Minute
	// Fallback when the host did not estimate a duration.
	defaultEstimatedDuration = 60 * time.Minute

	// EarlyJoinWindow is how long before the scheduled start participants
	// may already enter the session.
	EarlyJoinWindow = 15 * time.Minute
)

var (
	ErrSessionEnded      = errors.New("session has ended")
	ErrSessionFull       = errors.New("session is full")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrParticipantExists = errors.New("participant already in session")
)

// Session is a single sanctuary room: a voice-based support space with a
// lifecycle, a participant roster and moderation configuration.
type Session struct {
	Mutex             sync.RWMutex
	ID                uuid.UUID
	Topic             string
	Description       string
	Emoji             string
	HostID            uuid.UUID
	HostAlias         string
	Status            SessionStatus
	ScheduledAt       *time.Time
	EstimatedDuration time.Duration
	StartedAt         time.Time
	EndedAt           time.Time
	ExpiresAt         time.Time
	MaxParticipants   int
	Participants      []*Participant // join order
	ModerationLevel   ModerationLevel

	AllowAnonymous          bool
	AudioOnly               bool
	ModerationEnabled       bool
	EmergencyContactEnabled bool
	AIMonitoring            bool
	IsRecorded              bool

	CreatedAt time.Time
}

// SessionConfig carries everything a host supplies at creation time.
type SessionConfig struct {
	Topic             string
	Description       string
	Emoji             string
	HostID            uuid.UUID
	HostAlias         string
	ScheduledAt       *time.Time
	EstimatedDuration time.Duration
	MaxParticipants   int
	ModerationLevel   ModerationLevel

	AllowAnonymous          bool
	AudioOnly               bool
	ModerationEnabled       bool
	EmergencyContactEnabled bool
	AIMonitoring            bool
	IsRecorded              bool
}

// NewSession constructs a session from the host's configuration. A future
// schedule yields a scheduled session; otherwise the session is active
// immediately with the host on the roster. The host participant is created
// here and is the only participant with IsHost set, ever.
func NewSession(cfg SessionConfig) *Session {
	now := time.Now().UTC()

	level := cfg.ModerationLevel
	if level == "" {
		level = ModerationMedium
	}

	estimated := cfg.EstimatedDuration
	if estimated <= 0 {
		estimated = defaultEstimatedDuration
	}

	s := &Session{
		ID:                uuid.New(),
		Topic:             cfg.Topic,
		Description:       cfg.Description,
		Emoji:             cfg.Emoji,
		HostID:            cfg.HostID,
		HostAlias:         cfg.HostAlias,
		EstimatedDuration: estimated,
		MaxParticipants:   cfg.MaxParticipants,
		ModerationLevel:   level,

		AllowAnonymous:          cfg.AllowAnonymous,
		AudioOnly:               cfg.AudioOnly,
		ModerationEnabled:       cfg.ModerationEnabled,
		EmergencyContactEnabled: cfg.EmergencyContactEnabled,
		AIMonitoring:            cfg.AIMonitoring,
		IsRecorded:              cfg.IsRecorded,

		CreatedAt: now,
	}

	host := NewParticipant(cfg.HostID, cfg.HostAlias)
	host.IsHost = true
	host.IsModerator = true
	s.Participants = []*Participant{host}

	if cfg.ScheduledAt != nil && cfg.ScheduledAt.After(now) {
		at := cfg.ScheduledAt.UTC()
		s.ScheduledAt = &at
		s.Status = SessionStatusScheduled
		s.ExpiresAt = at.Add(estimated + scheduledSessionGrace)
		host.Status = ConnectionDisconnected
	} else {
		s.Status = SessionStatusActive
		s.StartedAt = now
		s.ExpiresAt = now.Add(immediateSessionLifetime)
	}

	return s
}

// IsExpired reports whether the session is past its hard lifetime.
func (s *Session) IsExpired() bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(s.ExpiresAt)
}

// TimeUntilStart returns how long until a scheduled session begins, or
// zero for sessions that are already runnable.
func (s *Session) TimeUntilStart(now time.Time) time.Duration {
	if s.Status != SessionStatusScheduled || s.ScheduledAt == nil {
		return 0
	}
	d := s.ScheduledAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// InJoinWindow reports whether a scheduled session can already be entered.
func (s *Session) InJoinWindow(now time.Time) bool {
	if s.Status != SessionStatusScheduled {
		return s.Status == SessionStatusActive || s.Status == SessionStatusWaiting
	}
	if s.ScheduledAt == nil {
		return true
	}
	return !now.Before(s.ScheduledAt.Add(-EarlyJoinWindow))
}

// Host returns the host participant. Every session has exactly one.
func (s *Session) Host() *Participant {
	for _, p := range s.Participants {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// FindParticipant looks a participant up by its ID.
func (s *Session) FindParticipant(id string) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindParticipantByUser looks a participant up by the owning user.
func (s *Session) FindParticipantByUser(userID uuid.UUID) *Participant {
	if userID == uuid.Nil {
		return nil
	}
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Admit appends a participant to the roster. Callers must hold the
// session mutex; the capacity check and the append have to be one
// critical section or concurrent joins can race past the limit.
func (s *Session) Admit(p *Participant, now time.Time) error {
	if s.Status == SessionStatusEnded {
		return ErrSessionEnded
	}
	if s.FindParticipant(p.ID) != nil {
		return ErrParticipantExists
	}
	if s.MaxParticipants > 0 && len(s.Participants) >= s.MaxParticipants {
		return ErrSessionFull
	}

	p.JoinedAt = now
	s.Participants = append(s.Participants, p)

	if s.Status == SessionStatusScheduled || s.Status == SessionStatusWaiting {
		s.Status = SessionStatusActive
		s.StartedAt = now
	}
	return nil
}

// Remove drops a participant from the roster and returns it. Callers must
// hold the session mutex. Removing the last non-host participant does not
// end the session; only End or expiry do.
func (s *Session) Remove(participantID string) *Participant {
	for i, p := range s.Participants {
		if p.ID == participantID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return p
		}
	}
	return nil
}

// End moves the session into its terminal state. There is no way back out
// of ended.
func (s *Session) End(now time.Time) error {
	if s.Status == SessionStatusEnded {
		return ErrSessionEnded
	}
	s.Status = SessionStatusEnded
	s.EndedAt = now
	return nil
}

// CanTransition reports whether a status change is legal. Transitions are
// monotonic: scheduled -> waiting -> active -> ended, with any forward
// skip allowed and nothing leaving ended.
func (s *Session) CanTransition(to SessionStatus) bool {
	order := map[SessionStatus]int{
		SessionStatusScheduled: 0,
		SessionStatusWaiting:   1,
		SessionStatusActive:    2,
		SessionStatusEnded:     3,
	}
	from, ok := order[s.Status]
	if !ok {
		return false
	}
	target, ok := order[to]
	if !ok {
		return false
	}
	return target > from
}
