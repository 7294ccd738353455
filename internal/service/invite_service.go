package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/external"
	"github.com/havenward/sanctum/internal/repository"
	"github.com/havenward/sanctum/lib/logger/sl"
)

const (
	defaultInvitationLifetime = 24 * time.Hour
	inviteCodeRetries         = 3
	channelTokenTTL           = 4 * time.Hour
)

// sessionResolver is the slice of the session service the invitation
// flow needs.
type sessionResolver interface {
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type InviteService struct {
	invitations repository.InvitationRepository
	acks        repository.AcknowledgmentRepository
	sessions    sessionResolver
	tokens      external.ChannelTokenIssuer
	log         *slog.Logger
}

func NewInviteService(invitations repository.InvitationRepository, acks repository.AcknowledgmentRepository, sessions sessionResolver, tokens external.ChannelTokenIssuer, log *slog.Logger) *InviteService {
	if log == nil {
		log = slog.Default()
	}
	return &InviteService{
		invitations: invitations,
		acks:        acks,
		sessions:    sessions,
		tokens:      tokens,
		log:         log,
	}
}

func (s *InviteService) CreateInvitation(ctx context.Context, params CreateInvitationParams) (*domain.Invitation, error) {
	const op = "service.invite.create"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", params.SessionID.String()),
	)

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusEnded {
		return nil, repository.ErrSessionNotFound
	}
	if session.HostID != params.CreatedBy {
		return nil, fmt.Errorf("%w: only the host can create invitations", ErrNotAuthorized)
	}

	maxUses := params.MaxUses
	if maxUses == 0 {
		maxUses = domain.UnlimitedUses
	}

	lifetime := defaultInvitationLifetime
	if params.ExpiryHours > 0 {
		lifetime = time.Duration(params.ExpiryHours) * time.Hour
	}
	// Never let an invitation outlive its session.
	if !session.ExpiresAt.IsZero() {
		if until := time.Until(session.ExpiresAt); until > 0 && until < lifetime {
			lifetime = until
		}
	}

	// Code collisions are vanishingly rare but the unique index makes
	// them visible, so retry with a fresh code.
	var invitation *domain.Invitation
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		invitation = domain.NewInvitation(params.SessionID, params.CreatedBy, maxUses, lifetime, params.Restrictions, params.Settings)
		err = s.invitations.Create(ctx, invitation)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrInviteCodeExists) {
			log.Error("failed to persist invitation", sl.Err(err))
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info("invitation created",
		slog.String("code", invitation.Code),
		slog.Int("max_uses", invitation.MaxUses),
	)
	return invitation, nil
}

// Preview resolves a code into the session behind it without consuming
// a use. Exhausted and inactive codes look exactly like missing ones.
func (s *InviteService) Preview(ctx context.Context, code string) (*InvitePreview, error) {
	invitation, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	invitation.Mutex.Lock()
	exhausted := !invitation.IsActive || invitation.IsExpired() ||
		(invitation.MaxUses >= 0 && invitation.CurrentUses >= invitation.MaxUses)
	invitation.Mutex.Unlock()
	if exhausted {
		return nil, repository.ErrInvitationNotFound
	}

	session, err := s.sessions.GetSession(ctx, invitation.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, repository.ErrInvitationNotFound
		}
		return nil, err
	}
	if session.Status == domain.SessionStatusEnded {
		return nil, repository.ErrInvitationNotFound
	}

	preview := &InvitePreview{
		Session:        session,
		WelcomeMessage: invitation.Settings.WelcomeMessage,
		AutoJoin:       invitation.Settings.AutoJoin,
	}
	if session.Status == domain.SessionStatusScheduled {
		preview.TimeUntilStart = session.TimeUntilStart(time.Now().UTC())
	}
	if invitation.Settings.RequireAcknowledgment {
		preview.ConsentRequired = consentRequirements(session)
	}
	return preview, nil
}

// Redeem resolves an invitation code into one of three outcomes:
// scheduled (too early to enter), requires_acknowledgment (consent
// screen first) or acknowledged (consent recorded, use consumed,
// channel token issued). Only the last one consumes a use.
func (s *InviteService) Redeem(ctx context.Context, code string, req RedeemRequest) (*RedeemResult, error) {
	const op = "service.invite.redeem"
	log := s.log.With(
		slog.String("op", op),
		slog.String("code", code),
	)

	invitation, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, invitation.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, repository.ErrInvitationNotFound
		}
		return nil, err
	}
	if session.Status == domain.SessionStatusEnded {
		return nil, repository.ErrInvitationNotFound
	}

	anonymous := req.UserID == uuid.Nil

	invitation.Mutex.Lock()
	err = invitation.CanRedeem(req.UserID, anonymous)
	invitation.Mutex.Unlock()
	if err != nil {
		return nil, mapRedeemError(err)
	}

	now := time.Now().UTC()
	if session.Status == domain.SessionStatusScheduled && !session.InJoinWindow(now) {
		return &RedeemResult{
			Outcome:        OutcomeScheduled,
			Session:        session,
			TimeUntilStart: session.TimeUntilStart(now),
			WelcomeMessage: invitation.Settings.WelcomeMessage,
		}, nil
	}

	ack := s.existingAcknowledgment(ctx, session.ID, req.UserID)

	if invitation.Settings.RequireAcknowledgment && !req.Acknowledged && ack == nil {
		return &RedeemResult{
			Outcome:         OutcomeRequiresAcknowledgment,
			Session:         session,
			WelcomeMessage:  invitation.Settings.WelcomeMessage,
			ConsentRequired: consentRequirements(session),
		}, nil
	}

	// Anonymous redeemers leave no acknowledgment record; there is no
	// stable identity to key one on.
	if ack == nil && !anonymous {
		ack = domain.NewAcknowledgment(session.ID, req.UserID, domain.AckInvitationLink, req.Consents)
		if req.VoiceSettings != nil {
			ack.VoiceSettings = req.VoiceSettings.Normalized()
		} else {
			ack.VoiceSettings = domain.DefaultVoiceSettings()
		}
		if err := s.acks.Create(ctx, ack); err != nil {
			if errors.Is(err, repository.ErrAcknowledgmentExists) {
				// Concurrent redemption of the same pair; reuse theirs.
				ack = s.existingAcknowledgment(ctx, session.ID, req.UserID)
			} else {
				log.Error("failed to persist acknowledgment", sl.Err(err))
				return nil, err
			}
		}
	} else if ack != nil {
		ack.Touch()
		if err := s.acks.Update(ctx, ack); err != nil {
			log.Debug("failed to refresh acknowledgment", sl.Err(err))
		}
	}

	// Re-check and consume as one critical section. The advisory check
	// above can go stale under concurrent redemptions of the same code;
	// this one is authoritative.
	invitation.Mutex.Lock()
	if err := invitation.CanRedeem(req.UserID, anonymous); err != nil {
		invitation.Mutex.Unlock()
		return nil, mapRedeemError(err)
	}
	invitation.RecordUse(domain.UsageEntry{
		UserID:       req.UserID,
		IP:           req.IP,
		UserAgent:    req.UserAgent,
		Timestamp:    now,
		Acknowledged: true,
	})
	uses := invitation.CurrentUses
	err = s.invitations.Update(ctx, invitation)
	invitation.Mutex.Unlock()
	if err != nil {
		log.Error("failed to record invitation use", sl.Err(err))
		return nil, err
	}

	uid := req.UserID.String()
	if anonymous {
		uid = uuid.New().String()
	}
	token := external.IssueOrFallback(s.tokens, session.ID.String(), uid, "participant", channelTokenTTL, s.log)

	log.Info("invitation redeemed",
		slog.String("session_id", session.ID.String()),
		slog.Int("uses", uses),
	)

	return &RedeemResult{
		Outcome:        OutcomeAcknowledged,
		Session:        session,
		WelcomeMessage: invitation.Settings.WelcomeMessage,
		Acknowledgment: ack,
		ChannelToken:   token,
		AutoJoin:       invitation.Settings.AutoJoin,
	}, nil
}

// mapRedeemError hides exhausted and inactive codes behind not-found
// and turns eligibility failures into authorization errors.
func mapRedeemError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvitationExhausted), errors.Is(err, domain.ErrInvitationInactive):
		return repository.ErrInvitationNotFound
	case errors.Is(err, domain.ErrUserBlocked), errors.Is(err, domain.ErrAuthRequired):
		return fmt.Errorf("%w: %s", ErrNotAuthorized, err)
	default:
		return err
	}
}

func (s *InviteService) existingAcknowledgment(ctx context.Context, sessionID, userID uuid.UUID) *domain.Acknowledgment {
	if userID == uuid.Nil {
		return nil
	}
	ack, err := s.acks.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil
	}
	return ack
}

// consentRequirements derive from the session's configuration.
// Participation consent is always demanded; the rest follow the flags.
func consentRequirements(session *domain.Session) *ConsentRequirements {
	return &ConsentRequirements{
		Participation:     true,
		Recording:         session.IsRecorded,
		AIModeration:      session.AIMonitoring,
		EmergencyProtocol: session.EmergencyContactEnabled,
	}
}
