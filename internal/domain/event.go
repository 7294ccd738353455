package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

type EventType string

const (
	EventParticipantJoined   EventType = "participant_joined"
	EventParticipantLeft     EventType = "participant_left"
	EventParticipantMuted    EventType = "participant_muted"
	EventParticipantKicked   EventType = "participant_kicked"
	EventParticipantPromoted EventType = "participant_promoted"
	EventHandRaised          EventType = "hand_raised"
	EventChatMessage         EventType = "chat_message"
	EventModerationAction    EventType = "moderation_action"
	EventEmergencyAlert      EventType = "emergency_alert"
	EventSessionEnded        EventType = "session_ended"
	EventSignal              EventType = "signal"
)

// Event is one state change published on a session's broadcast channel.
// Seq is assigned by the broadcaster and is monotonic per session, in
// commit order. Delivery is best-effort and at-most-once; subscribers
// that fall behind resync from the session store.
type Event struct {
	Type      EventType      `json:"type"`
	Seq       uint64         `json:"seq"`
	SessionID uuid.UUID      `json:"session_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEvent(sessionID uuid.UUID, eventType EventType, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// SignalMessage is a client-originated frame on the session websocket.
// Offer/answer/ICE frames are relayed between participants as-is; the
// media itself never touches this process.
type SignalMessage struct {
	Type      string                     `json:"type"` // "offer", "answer", "ice-candidate", "chat", "transcript", "raise-hand", "mute", "kick", "promote", "speaking", "leave"
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	SenderID  string                     `json:"sender_id,omitempty"`
	TargetID  string                     `json:"target_id,omitempty"`
	Payload   map[string]any             `json:"payload,omitempty"`
}
