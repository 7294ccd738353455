package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/broadcast"
	"github.com/havenward/sanctum/internal/cache"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/moderation"
	"github.com/havenward/sanctum/internal/repository"
	"github.com/havenward/sanctum/lib/logger/sl"
)

const maxChatMessageLength = 4000

// defaultCleanupDelay gives clients time to drain the final broadcast
// before the session's cache entries disappear.
const defaultCleanupDelay = 30 * time.Second

type SessionService struct {
	sessions repository.SessionRepository
	acks     repository.AcknowledgmentRepository
	cache    *cache.Store
	hub      *broadcast.Hub
	pipeline *moderation.Pipeline
	log      *slog.Logger

	cleanupDelay time.Duration

	mu             sync.RWMutex
	activeSessions map[uuid.UUID]*domain.Session
}

func NewSessionService(sessions repository.SessionRepository, acks repository.AcknowledgmentRepository, store *cache.Store, hub *broadcast.Hub, pipeline *moderation.Pipeline, log *slog.Logger) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		sessions:       sessions,
		acks:           acks,
		cache:          store,
		hub:            hub,
		pipeline:       pipeline,
		log:            log,
		cleanupDelay:   defaultCleanupDelay,
		activeSessions: make(map[uuid.UUID]*domain.Session),
	}
}

func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (*domain.Session, error) {
	const op = "service.session.create"
	log := s.log.With(slog.String("op", op))

	if strings.TrimSpace(params.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if params.HostID == uuid.Nil {
		return nil, fmt.Errorf("%w: host is required", ErrValidation)
	}
	if params.MaxParticipants <= 0 {
		return nil, fmt.Errorf("%w: max participants must be positive", ErrValidation)
	}
	if params.ScheduledAt != nil && params.ScheduledAt.Before(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: scheduled time is in the past", ErrValidation)
	}

	session := domain.NewSession(domain.SessionConfig{
		Topic:             strings.TrimSpace(params.Topic),
		Description:       params.Description,
		Emoji:             params.Emoji,
		HostID:            params.HostID,
		HostAlias:         params.HostAlias,
		ScheduledAt:       params.ScheduledAt,
		EstimatedDuration: params.EstimatedDuration,
		MaxParticipants:   params.MaxParticipants,
		ModerationLevel:   params.ModerationLevel,

		AllowAnonymous:          params.AllowAnonymous,
		AudioOnly:               params.AudioOnly,
		ModerationEnabled:       params.ModerationEnabled,
		EmergencyContactEnabled: params.EmergencyContactEnabled,
		AIMonitoring:            params.AIMonitoring,
		IsRecorded:              params.IsRecorded,
	})

	if err := s.sessions.Create(ctx, session); err != nil {
		log.Error("failed to persist session", sl.Err(err))
		return nil, err
	}

	s.mu.Lock()
	s.activeSessions[session.ID] = session
	s.mu.Unlock()

	s.mirrorCount(session)

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("status", string(session.Status)),
	)
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if session := s.getActiveSession(id); session != nil {
		if session.IsExpired() {
			s.removeActiveSession(id)
			return nil, ErrSessionExpired
		}
		return session, nil
	}

	fromStore, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	session := s.activateSession(fromStore)
	if session.IsExpired() {
		s.removeActiveSession(session.ID)
		return nil, ErrSessionExpired
	}

	return session, nil
}

func (s *SessionService) SessionStatus(ctx context.Context, id uuid.UUID) (*SessionStatusInfo, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	session.Mutex.RLock()
	defer session.Mutex.RUnlock()

	info := &SessionStatusInfo{
		Status:              session.Status,
		IsScheduled:         session.Status == domain.SessionStatusScheduled,
		ScheduledAt:         session.ScheduledAt,
		TimeUntilStart:      session.TimeUntilStart(now),
		CurrentParticipants: len(session.Participants),
		MaxParticipants:     session.MaxParticipants,
		IsFull:              session.MaxParticipants > 0 && len(session.Participants) >= session.MaxParticipants,
	}

	switch {
	case session.Status == domain.SessionStatusEnded:
		info.JoinMessage = "this sanctuary has ended"
	case info.IsFull:
		info.JoinMessage = "this sanctuary is full"
	case !session.InJoinWindow(now):
		info.JoinMessage = fmt.Sprintf("starts in %s", info.TimeUntilStart.Round(time.Minute))
	default:
		info.CanJoin = true
		info.JoinMessage = "you can join now"
	}

	return info, nil
}

// Join admits a participant. The capacity check and the roster append
// run under the session mutex as one critical section, so concurrent
// joins cannot race past maxParticipants.
func (s *SessionService) Join(ctx context.Context, sessionID uuid.UUID, req JoinRequest) (*JoinResult, error) {
	const op = "service.session.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
	)

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	anonymous := req.UserID == uuid.Nil

	session.Mutex.Lock()

	if session.Status == domain.SessionStatusEnded {
		session.Mutex.Unlock()
		return nil, repository.ErrSessionNotFound
	}

	if session.Status == domain.SessionStatusScheduled && !session.InJoinWindow(now) {
		result := &JoinResult{
			Scheduled:      true,
			TimeUntilStart: session.TimeUntilStart(now),
			ScheduledAt:    session.ScheduledAt,
			Session:        session,
		}
		session.Mutex.Unlock()
		return result, nil
	}

	// The host is on the roster from creation; a host join is a
	// reconnect, not an admission.
	if existing := session.FindParticipantByUser(req.UserID); existing != nil {
		existing.Status = domain.ConnectionConnected
		err := s.sessions.Update(ctx, session)
		session.Mutex.Unlock()
		if err != nil {
			log.Error("failed to persist reconnect", sl.Err(err))
			return nil, err
		}

		s.publish(session.ID, domain.EventParticipantJoined, map[string]any{
			"participant_id": existing.ID,
			"alias":          existing.Alias,
			"is_host":        existing.IsHost,
			"reconnected":    true,
		})
		return &JoinResult{Session: session, Participant: existing}, nil
	}

	// Capacity gates before identity: a full session turns everyone
	// away with the same answer.
	if session.MaxParticipants > 0 && len(session.Participants) >= session.MaxParticipants {
		session.Mutex.Unlock()
		return nil, ErrCapacityExceeded
	}

	if strings.TrimSpace(req.Alias) == "" {
		session.Mutex.Unlock()
		return nil, fmt.Errorf("%w: alias is required", ErrValidation)
	}
	if anonymous && !session.AllowAnonymous {
		session.Mutex.Unlock()
		return nil, fmt.Errorf("%w: anonymous joins are not allowed in this sanctuary", ErrValidation)
	}

	participant := domain.NewParticipant(req.UserID, strings.TrimSpace(req.Alias))
	if err := session.Admit(participant, now); err != nil {
		session.Mutex.Unlock()
		switch {
		case errors.Is(err, domain.ErrSessionFull):
			return nil, ErrCapacityExceeded
		case errors.Is(err, domain.ErrSessionEnded):
			return nil, repository.ErrSessionNotFound
		default:
			return nil, err
		}
	}
	participant.Status = domain.ConnectionConnected

	// Persist before releasing the lock; the roster walk inside the
	// store conversion must not race a concurrent admission.
	if err := s.sessions.Update(ctx, session); err != nil {
		session.Remove(participant.ID)
		session.Mutex.Unlock()
		log.Error("failed to persist join", sl.Err(err))
		return nil, err
	}
	session.Mutex.Unlock()

	s.mirrorCount(session)

	s.publish(session.ID, domain.EventParticipantJoined, map[string]any{
		"participant_id": participant.ID,
		"alias":          participant.Alias,
		"is_host":        participant.IsHost,
	})

	log.Info("participant joined",
		slog.String("participant_id", participant.ID),
		slog.String("alias", participant.Alias),
	)
	return &JoinResult{Session: session, Participant: participant}, nil
}

func (s *SessionService) Leave(ctx context.Context, sessionID uuid.UUID, participantID, reason string) error {
	const op = "service.session.leave"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("participant_id", participantID),
	)

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	participant := session.FindParticipant(participantID)
	if participant == nil {
		session.Mutex.Unlock()
		return ErrParticipantNotFound
	}
	if participant.IsHost {
		// The host stays on the roster; only their connection drops.
		participant.Status = domain.ConnectionDisconnected
	} else {
		session.Remove(participantID)
	}
	err = s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		log.Error("failed to persist leave", sl.Err(err))
		return err
	}

	s.mirrorCount(session)
	s.recordExit(ctx, session.ID, participant.UserID, reason)

	s.publish(session.ID, domain.EventParticipantLeft, map[string]any{
		"participant_id": participantID,
		"reason":         reason,
	})

	return nil
}

// End is host-only. It stamps the terminal state, broadcasts the final
// event and schedules the cache purge after a drain delay.
func (s *SessionService) End(ctx context.Context, sessionID, actorUserID uuid.UUID) error {
	const op = "service.session.end"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
	)

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.HostID != actorUserID {
		return fmt.Errorf("%w: only the host can end the sanctuary", ErrNotAuthorized)
	}

	return s.endSession(ctx, session, "ended by host", log)
}

func (s *SessionService) endSession(ctx context.Context, session *domain.Session, reason string, log *slog.Logger) error {
	now := time.Now().UTC()

	session.Mutex.Lock()
	err := session.End(now)
	if err != nil {
		session.Mutex.Unlock()
		return err
	}
	err = s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		log.Error("failed to persist session end", sl.Err(err))
		return err
	}

	s.publish(session.ID, domain.EventSessionEnded, map[string]any{
		"reason":   reason,
		"ended_at": now.Format(time.RFC3339),
	})

	s.removeActiveSession(session.ID)

	sessionID := session.ID
	time.AfterFunc(s.cleanupDelay, func() {
		s.hub.CloseSession(sessionID)
		if s.cache != nil {
			if err := s.cache.PurgeSession(sessionID); err != nil {
				s.log.Error("failed to purge session cache", sl.Err(err))
			}
		}
	})

	log.Info("session ended", slog.String("reason", reason))
	return nil
}

func (s *SessionService) HandleSignal(ctx context.Context, sessionID uuid.UUID, participantID string, message *domain.SignalMessage) error {
	const op = "service.session.signal"
	if message == nil {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("participant_id", participantID),
	)

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Mutex.RLock()
	participant := session.FindParticipant(participantID)
	session.Mutex.RUnlock()
	if participant == nil {
		return ErrParticipantNotFound
	}

	switch message.Type {
	case "offer", "answer", "ice-candidate":
		return s.relaySignal(session, participant, message)
	case "chat":
		return s.handleChat(ctx, session, participant, message, log)
	case "transcript":
		return s.handleTranscript(ctx, session, participant, message, log)
	case "raise-hand":
		return s.setHandRaised(ctx, session, participant, boolPayload(message.Payload, "raised"))
	case "speaking":
		return s.recordSpeaking(ctx, session, participant, message)
	case "mute":
		return s.Mute(ctx, session.ID, participantID, stringPayload(message.Payload, "target_id"), boolPayload(message.Payload, "muted"))
	case "kick":
		return s.Kick(ctx, session.ID, participantID, stringPayload(message.Payload, "target_id"))
	case "promote":
		return s.Promote(ctx, session.ID, participantID, stringPayload(message.Payload, "target_id"))
	case "leave":
		return s.Leave(ctx, session.ID, participantID, stringPayload(message.Payload, "reason"))
	default:
		return fmt.Errorf("%w: unsupported signal type %q", ErrValidation, message.Type)
	}
}

// relaySignal forwards SDP and ICE frames over the session channel. The
// audio media itself flows through the external channel provider.
func (s *SessionService) relaySignal(session *domain.Session, sender *domain.Participant, message *domain.SignalMessage) error {
	payload := map[string]any{
		"signal_type": message.Type,
		"sender_id":   sender.ID,
	}
	if message.TargetID != "" {
		payload["target_id"] = message.TargetID
	}
	if message.SDP != nil {
		payload["sdp"] = message.SDP
	}
	if message.Candidate != nil {
		payload["candidate"] = message.Candidate
	}

	s.publish(session.ID, domain.EventSignal, payload)
	return nil
}

func (s *SessionService) handleChat(ctx context.Context, session *domain.Session, participant *domain.Participant, message *domain.SignalMessage, log *slog.Logger) error {
	content, err := chatContent(message.Payload)
	if err != nil {
		return err
	}

	if participant.IsMuted {
		return fmt.Errorf("%w: participant is muted", ErrNotAuthorized)
	}

	// Tier one blocks delivery. Nothing reaches the room before the
	// crisis check has run.
	if session.ModerationEnabled && s.pipeline != nil {
		decision := s.pipeline.ScreenInstant(content, session.ID, participant.ID)
		if decision.Action == domain.ActionEmergencyAlert {
			s.bumpStats(ctx, session.ID, participant.UserID, func(stats *domain.ParticipationStats) {
				stats.ModerationFlags++
			})
			s.publish(session.ID, domain.EventEmergencyAlert, map[string]any{
				"participant_id": participant.ID,
				"severity":       string(decision.Severity),
				"reason":         decision.Reason,
			})
			log.Warn("chat message blocked by crisis check",
				slog.String("reason", decision.Reason),
			)
			return nil
		}
	}

	s.publish(session.ID, domain.EventChatMessage, map[string]any{
		"participant_id": participant.ID,
		"alias":          participant.Alias,
		"message":        content,
		"sent_at":        time.Now().UTC().Format(time.RFC3339Nano),
	})

	s.bumpStats(ctx, session.ID, participant.UserID, func(stats *domain.ParticipationStats) {
		stats.MessageCount++
	})

	// Tier two runs after delivery and escalates retroactively.
	if session.ModerationEnabled && s.pipeline != nil {
		go s.deepScreen(session, participant, content, false)
	}

	return nil
}

func (s *SessionService) handleTranscript(ctx context.Context, session *domain.Session, participant *domain.Participant, message *domain.SignalMessage, log *slog.Logger) error {
	content, err := chatContent(message.Payload)
	if err != nil {
		return err
	}

	if session.ModerationEnabled && s.pipeline != nil {
		decision := s.pipeline.ScreenInstant(content, session.ID, participant.ID)
		if decision.Action == domain.ActionEmergencyAlert {
			s.publish(session.ID, domain.EventEmergencyAlert, map[string]any{
				"participant_id": participant.ID,
				"severity":       string(decision.Severity),
				"reason":         decision.Reason,
			})
			log.Warn("transcript triggered crisis alert")
			return nil
		}
		go s.deepScreen(session, participant, content, true)
	}

	return nil
}

// deepScreen runs tier two off the delivery path and applies whatever
// escalation comes back.
func (s *SessionService) deepScreen(session *domain.Session, participant *domain.Participant, content string, transcript bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	decision := s.pipeline.ScreenDeep(ctx, content, session.ModerationLevel, transcript)
	if decision.Action == domain.ActionNone {
		return
	}

	s.bumpStats(ctx, session.ID, participant.UserID, func(stats *domain.ParticipationStats) {
		stats.ModerationFlags++
	})

	switch decision.Action {
	case domain.ActionWarning:
		s.publish(session.ID, domain.EventModerationAction, map[string]any{
			"participant_id": participant.ID,
			"action":         string(domain.ActionWarning),
			"severity":       string(decision.Severity),
			"reason":         decision.Reason,
		})
	case domain.ActionMute:
		if err := s.Mute(ctx, session.ID, "", participant.ID, true); err != nil {
			s.log.Error("failed to apply moderation mute", sl.Err(err))
		}
	case domain.ActionKick:
		if err := s.Kick(ctx, session.ID, "", participant.ID); err != nil {
			s.log.Error("failed to apply moderation kick", sl.Err(err))
		}
	case domain.ActionEmergencyAlert:
		s.publish(session.ID, domain.EventEmergencyAlert, map[string]any{
			"participant_id": participant.ID,
			"severity":       string(decision.Severity),
			"reason":         decision.Reason,
		})
	}
}

// Mute toggles a participant's mute flag. An empty actorID marks a
// moderation-pipeline action, which is always allowed.
func (s *SessionService) Mute(ctx context.Context, sessionID uuid.UUID, actorID, targetID string, muted bool) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if err := s.authorizeRosterAction(session, actorID, targetID, muted); err != nil {
		session.Mutex.Unlock()
		return err
	}
	target := session.FindParticipant(targetID)
	if target == nil {
		session.Mutex.Unlock()
		return ErrParticipantNotFound
	}
	target.IsMuted = muted
	err = s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		return err
	}

	s.publish(session.ID, domain.EventParticipantMuted, map[string]any{
		"participant_id": targetID,
		"muted":          muted,
	})
	return nil
}

func (s *SessionService) Kick(ctx context.Context, sessionID uuid.UUID, actorID, targetID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if err := s.authorizeRosterAction(session, actorID, targetID, true); err != nil {
		session.Mutex.Unlock()
		return err
	}
	target := session.FindParticipant(targetID)
	if target == nil {
		session.Mutex.Unlock()
		return ErrParticipantNotFound
	}
	if target.IsHost {
		session.Mutex.Unlock()
		return fmt.Errorf("%w: the host cannot be kicked", ErrNotAuthorized)
	}
	session.Remove(targetID)
	err = s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		return err
	}

	s.mirrorCount(session)
	s.recordExit(ctx, session.ID, target.UserID, "kicked")

	s.publish(session.ID, domain.EventParticipantKicked, map[string]any{
		"participant_id": targetID,
	})
	return nil
}

func (s *SessionService) Promote(ctx context.Context, sessionID uuid.UUID, actorID, targetID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	actor := session.FindParticipant(actorID)
	if actor == nil || !actor.IsHost {
		session.Mutex.Unlock()
		return fmt.Errorf("%w: only the host can promote moderators", ErrNotAuthorized)
	}
	target := session.FindParticipant(targetID)
	if target == nil {
		session.Mutex.Unlock()
		return ErrParticipantNotFound
	}
	target.IsModerator = true
	err = s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		return err
	}

	s.publish(session.ID, domain.EventParticipantPromoted, map[string]any{
		"participant_id": targetID,
	})
	return nil
}

func (s *SessionService) setHandRaised(ctx context.Context, session *domain.Session, participant *domain.Participant, raised bool) error {
	session.Mutex.Lock()
	participant.HandRaised = raised
	err := s.sessions.Update(ctx, session)
	session.Mutex.Unlock()
	if err != nil {
		return err
	}

	if raised {
		s.bumpStats(ctx, session.ID, participant.UserID, func(stats *domain.ParticipationStats) {
			stats.HandsRaised++
		})
	}

	s.publish(session.ID, domain.EventHandRaised, map[string]any{
		"participant_id": participant.ID,
		"raised":         raised,
	})
	return nil
}

func (s *SessionService) recordSpeaking(ctx context.Context, session *domain.Session, participant *domain.Participant, message *domain.SignalMessage) error {
	seconds, _ := message.Payload["seconds"].(float64)
	if seconds <= 0 {
		return nil
	}
	active := time.Duration(seconds * float64(time.Second))

	session.Mutex.Lock()
	participant.SpeakingTime += active
	session.Mutex.Unlock()

	s.bumpStats(ctx, session.ID, participant.UserID, func(stats *domain.ParticipationStats) {
		stats.VoiceActiveTime += active
	})
	return nil
}

func (s *SessionService) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participant, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.Mutex.RLock()
	defer session.Mutex.RUnlock()

	result := make([]*domain.Participant, len(session.Participants))
	copy(result, session.Participants)
	return result, nil
}

func (s *SessionService) ActiveAlerts(ctx context.Context, sessionID uuid.UUID) ([]domain.EmergencyAlert, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.ActiveAlerts(sessionID)
}

// authorizeRosterAction gates mute/kick on host or moderator. The empty
// actor is the moderation pipeline itself. Self-unmute is allowed.
func (s *SessionService) authorizeRosterAction(session *domain.Session, actorID, targetID string, restrictive bool) error {
	if actorID == "" {
		return nil
	}
	if actorID == targetID && !restrictive {
		return nil
	}
	actor := session.FindParticipant(actorID)
	if actor == nil {
		return ErrParticipantNotFound
	}
	if !actor.IsHost && !actor.IsModerator {
		return fmt.Errorf("%w: host or moderator role required", ErrNotAuthorized)
	}
	return nil
}

func (s *SessionService) publish(sessionID uuid.UUID, eventType domain.EventType, payload map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(sessionID, domain.NewEvent(sessionID, eventType, payload))
}

func (s *SessionService) mirrorCount(session *domain.Session) {
	if s.cache == nil {
		return
	}
	session.Mutex.RLock()
	count := len(session.Participants)
	session.Mutex.RUnlock()
	if err := s.cache.SetParticipantCount(session.ID, count); err != nil {
		s.log.Debug("failed to mirror participant count", sl.Err(err))
	}
}

// bumpStats updates the acknowledgment's participation statistics.
// Anonymous participants have no acknowledgment; that is not an error.
func (s *SessionService) bumpStats(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID, mutate func(*domain.ParticipationStats)) {
	if s.acks == nil || userID == uuid.Nil {
		return
	}
	ack, err := s.acks.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrAcknowledgmentNotFound) {
			s.log.Debug("failed to load acknowledgment for stats", sl.Err(err))
		}
		return
	}
	mutate(&ack.Stats)
	ack.Touch()
	if err := s.acks.Update(ctx, ack); err != nil {
		s.log.Debug("failed to update participation stats", sl.Err(err))
	}
}

func (s *SessionService) recordExit(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID, reason string) {
	if s.acks == nil || userID == uuid.Nil || reason == "" {
		return
	}
	ack, err := s.acks.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		return
	}
	ack.ExitReason = reason
	ack.Touch()
	if err := s.acks.Update(ctx, ack); err != nil {
		s.log.Debug("failed to record exit reason", sl.Err(err))
	}
}

func (s *SessionService) getActiveSession(id uuid.UUID) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSessions[id]
}

func (s *SessionService) removeActiveSession(id uuid.UUID) {
	s.mu.Lock()
	delete(s.activeSessions, id)
	s.mu.Unlock()
}

func (s *SessionService) activateSession(session *domain.Session) *domain.Session {
	if session == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.activeSessions[session.ID]; existing != nil {
		return existing
	}

	s.activeSessions[session.ID] = session
	return session
}

func chatContent(payload map[string]any) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("%w: payload is required", ErrValidation)
	}
	raw, ok := payload["message"]
	if !ok {
		return "", fmt.Errorf("%w: payload message is required", ErrValidation)
	}
	content, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: payload message must be a string", ErrValidation)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return "", fmt.Errorf("%w: message is too long", ErrValidation)
	}
	return content, nil
}

func boolPayload(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	value, _ := payload[key].(bool)
	return value
}

func stringPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, _ := payload[key].(string)
	return value
}
