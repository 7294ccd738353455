package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/cache"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/external"
	"github.com/havenward/sanctum/internal/repository"
	"github.com/havenward/sanctum/lib/logger/sl"
)

const maxSynthesisRunes = 1000

type VoiceService struct {
	sessions    sessionResolver
	acks        repository.AcknowledgmentRepository
	cache       *cache.Store
	synthesizer external.SpeechSynthesizer
	log         *slog.Logger
}

func NewVoiceService(sessions sessionResolver, acks repository.AcknowledgmentRepository, store *cache.Store, synthesizer external.SpeechSynthesizer, log *slog.Logger) *VoiceService {
	if log == nil {
		log = slog.Default()
	}
	return &VoiceService{
		sessions:    sessions,
		acks:        acks,
		cache:       store,
		synthesizer: synthesizer,
		log:         log,
	}
}

// UpdateSettings normalizes and stores a participant's voice masking
// settings. The cache is authoritative for the session's lifetime; the
// acknowledgment keeps a copy for known users.
func (s *VoiceService) UpdateSettings(ctx context.Context, sessionID uuid.UUID, participantID string, settings domain.VoiceSettings) (domain.VoiceSettings, error) {
	const op = "service.voice.update"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("participant_id", participantID),
	)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.VoiceSettings{}, err
	}

	session.Mutex.RLock()
	participant := session.FindParticipant(participantID)
	session.Mutex.RUnlock()
	if participant == nil {
		return domain.VoiceSettings{}, ErrParticipantNotFound
	}

	normalized := settings.Normalized()

	if s.cache != nil {
		if err := s.cache.PutVoiceSettings(sessionID, participantID, normalized); err != nil {
			log.Error("failed to cache voice settings", sl.Err(err))
			return domain.VoiceSettings{}, err
		}
	}

	if s.acks != nil && participant.UserID != uuid.Nil {
		ack, err := s.acks.GetBySessionAndUser(ctx, sessionID, participant.UserID)
		if err == nil {
			ack.VoiceSettings = normalized
			ack.Touch()
			if err := s.acks.Update(ctx, ack); err != nil {
				log.Debug("failed to mirror voice settings", sl.Err(err))
			}
		} else if !errors.Is(err, repository.ErrAcknowledgmentNotFound) {
			log.Debug("failed to load acknowledgment", sl.Err(err))
		}
	}

	return normalized, nil
}

// GetSettings returns the stored settings, or the defaults when the
// participant never customized anything.
func (s *VoiceService) GetSettings(ctx context.Context, sessionID uuid.UUID, participantID string) (domain.VoiceSettings, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.VoiceSettings{}, err
	}

	session.Mutex.RLock()
	participant := session.FindParticipant(participantID)
	session.Mutex.RUnlock()
	if participant == nil {
		return domain.VoiceSettings{}, ErrParticipantNotFound
	}

	if s.cache != nil {
		settings, ok, err := s.cache.GetVoiceSettings(sessionID, participantID)
		if err != nil {
			return domain.VoiceSettings{}, err
		}
		if ok {
			return settings, nil
		}
	}

	return domain.DefaultVoiceSettings(), nil
}

// Synthesize renders text as audio with the participant's voice
// settings. A missing or failing synthesizer yields no audio rather
// than an error; text delivery already happened over chat.
func (s *VoiceService) Synthesize(ctx context.Context, sessionID uuid.UUID, participantID, text string) ([]byte, error) {
	const op = "service.voice.synthesize"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
	)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if len([]rune(text)) > maxSynthesisRunes {
		return nil, fmt.Errorf("%w: text is too long", ErrValidation)
	}

	settings, err := s.GetSettings(ctx, sessionID, participantID)
	if err != nil {
		return nil, err
	}

	if s.synthesizer == nil {
		return nil, nil
	}

	audio, err := s.synthesizer.Synthesize(ctx, text, string(settings.VoiceStyle), settings)
	if err != nil {
		log.Warn("speech synthesis failed", sl.Err(err))
		return nil, nil
	}
	return audio, nil
}
