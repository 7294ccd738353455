package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ModerationAction string

const (
	ActionNone           ModerationAction = "none"
	ActionWarning        ModerationAction = "warning"
	ActionMute           ModerationAction = "mute"
	ActionKick           ModerationAction = "kick"
	ActionEmergencyAlert ModerationAction = "emergency_alert"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ModerationDecision is the transient outcome of screening one piece of
// content. It is never persisted; the resulting events and alerts are.
type ModerationDecision struct {
	Action     ModerationAction `json:"action"`
	Severity   Severity         `json:"severity"`
	Reason     string           `json:"reason"`
	Confidence float64          `json:"confidence"`
	Latency    time.Duration    `json:"latency"`
}

// Allowed reports whether the content may be delivered to the session.
func (d ModerationDecision) Allowed() bool {
	return d.Action != ActionEmergencyAlert && d.Action != ActionKick
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// EmergencyAlert is raised whenever the local crisis check fires,
// independent of the configured moderation level. It lives in the
// ephemeral cache, not the authoritative store.
type EmergencyAlert struct {
	ID            uuid.UUID   `json:"id"`
	SessionID     uuid.UUID   `json:"session_id"`
	ParticipantID string      `json:"participant_id"`
	Excerpt       string      `json:"excerpt"`
	Reason        string      `json:"reason"`
	Confidence    float64     `json:"confidence"`
	Status        AlertStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

const alertExcerptLength = 120

// NewEmergencyAlert creates an active alert with a truncated excerpt of
// the triggering content. Raw content never leaves the moderation path.
func NewEmergencyAlert(sessionID uuid.UUID, participantID, content, reason string, confidence float64) *EmergencyAlert {
	excerpt := content
	if utf8.RuneCountInString(excerpt) > alertExcerptLength {
		excerpt = string([]rune(excerpt)[:alertExcerptLength])
	}
	return &EmergencyAlert{
		ID:            uuid.New(),
		SessionID:     sessionID,
		ParticipantID: participantID,
		Excerpt:       excerpt,
		Reason:        reason,
		Confidence:    confidence,
		Status:        AlertActive,
		CreatedAt:     time.Now().UTC(),
	}
}

// ContentScores is what the deep analysis capability returns. Each
// dimension is in [0, 1].
type ContentScores struct {
	Toxicity          float64 `json:"toxicity"`
	SelfHarm          float64 `json:"self_harm"`
	Spam              float64 `json:"spam"`
	Inappropriate     float64 `json:"inappropriate"`
	RecommendedAction string  `json:"recommended_action,omitempty"`
	Reason            string  `json:"reason,omitempty"`
}
