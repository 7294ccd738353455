package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Participant is one person inside a session. It is owned exclusively by
// its session and never referenced outside of it.
type Participant struct {
	ID          string
	UserID      uuid.UUID
	Alias       string
	IsHost      bool
	IsModerator bool
	IsBlocked   bool
	IsMuted     bool
	HandRaised  bool
	Status      ConnectionStatus
	JoinedAt    time.Time
	// SpeakingTime accumulates voice-active time across the session.
	SpeakingTime time.Duration
}

// NewParticipant creates a connecting participant. A nil user ID marks an
// anonymous participant.
func NewParticipant(userID uuid.UUID, alias string) *Participant {
	return &Participant{
		ID:       participantID(),
		UserID:   userID,
		Alias:    alias,
		Status:   ConnectionConnecting,
		JoinedAt: time.Now().UTC(),
	}
}

// IsAnonymous reports whether the participant joined without an account.
func (p *Participant) IsAnonymous() bool {
	return p.UserID == uuid.Nil
}

const participantIDLength = 12

func participantID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(id) <= participantIDLength {
		return id
	}
	return id[:participantIDLength]
}
