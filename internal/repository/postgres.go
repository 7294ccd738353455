package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/repository/model"
	"gorm.io/gorm"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewPostgresSessionRepository(db *gorm.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	return r.db.WithContext(ctx).Create(toModelSession(session)).Error
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session model.Session
	err := r.db.WithContext(ctx).Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	}).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return toDomainSession(&session), nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	sessionModel := toModelSession(session)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"topic":            sessionModel.Topic,
			"description":      sessionModel.Description,
			"emoji":            sessionModel.Emoji,
			"status":           sessionModel.Status,
			"expires_at":       sessionModel.ExpiresAt,
			"max_participants": sessionModel.MaxParticipants,
			"moderation_level": sessionModel.ModerationLevel,
		}

		if sessionModel.StartedAt == nil {
			updates["started_at"] = gorm.Expr("NULL")
		} else {
			updates["started_at"] = sessionModel.StartedAt
		}
		if sessionModel.EndedAt == nil {
			updates["ended_at"] = gorm.Expr("NULL")
		} else {
			updates["ended_at"] = sessionModel.EndedAt
		}

		res := tx.Model(&model.Session{}).Where("id = ?", sessionModel.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotFound
		}

		if err := tx.Where("session_id = ?", sessionModel.ID).Delete(&model.Participant{}).Error; err != nil {
			return err
		}

		if len(sessionModel.Participants) > 0 {
			if err := tx.Create(&sessionModel.Participants).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.Session{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) List(ctx context.Context) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessions []model.Session
	if err := r.db.WithContext(ctx).Preload("Participants").Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Session, 0, len(sessions))
	for i := range sessions {
		result = append(result, toDomainSession(&sessions[i]))
	}

	return result, nil
}

type PostgresInvitationRepository struct {
	db *gorm.DB
}

func NewPostgresInvitationRepository(db *gorm.DB) *PostgresInvitationRepository {
	return &PostgresInvitationRepository{db: db}
}

func (r *PostgresInvitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if invitation == nil {
		return errors.New("invitation is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelInvitation(invitation)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrInviteCodeExists
		}
		return err
	}
	return nil
}

func (r *PostgresInvitationRepository) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var invitation model.Invitation
	err := r.db.WithContext(ctx).Preload("Uses", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp ASC")
	}).First(&invitation, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	return toDomainInvitation(&invitation), nil
}

func (r *PostgresInvitationRepository) Update(ctx context.Context, invitation *domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if invitation == nil {
		return errors.New("invitation is nil")
	}

	invModel := toModelInvitation(invitation)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"current_uses": invModel.CurrentUses,
			"restrictions": invModel.Restrictions,
			"settings":     invModel.Settings,
			"is_active":    invModel.IsActive,
		}
		if invModel.ExpiresAt == nil {
			updates["expires_at"] = gorm.Expr("NULL")
		} else {
			updates["expires_at"] = invModel.ExpiresAt
		}

		res := tx.Model(&model.Invitation{}).Where("id = ?", invModel.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationNotFound
		}

		// The usage log is append-only: only rows beyond the persisted
		// count are new.
		var persisted int64
		if err := tx.Model(&model.InvitationUse{}).Where("invitation_id = ?", invModel.ID).Count(&persisted).Error; err != nil {
			return err
		}
		if int(persisted) < len(invModel.Uses) {
			fresh := invModel.Uses[persisted:]
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *PostgresInvitationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var invitations []model.Invitation
	if err := r.db.WithContext(ctx).Preload("Uses").Find(&invitations, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Invitation, 0, len(invitations))
	for i := range invitations {
		result = append(result, toDomainInvitation(&invitations[i]))
	}
	return result, nil
}

type PostgresAcknowledgmentRepository struct {
	db *gorm.DB
}

func NewPostgresAcknowledgmentRepository(db *gorm.DB) *PostgresAcknowledgmentRepository {
	return &PostgresAcknowledgmentRepository{db: db}
}

func (r *PostgresAcknowledgmentRepository) Create(ctx context.Context, ack *domain.Acknowledgment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ack == nil {
		return errors.New("acknowledgment is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelAcknowledgment(ack)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAcknowledgmentExists
		}
		return err
	}
	return nil
}

func (r *PostgresAcknowledgmentRepository) GetBySessionAndUser(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ack model.Acknowledgment
	err := r.db.WithContext(ctx).First(&ack, "session_id = ? AND user_id = ?", sessionID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAcknowledgmentNotFound
		}
		return nil, err
	}

	return toDomainAcknowledgment(&ack), nil
}

func (r *PostgresAcknowledgmentRepository) Update(ctx context.Context, ack *domain.Acknowledgment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ack == nil {
		return errors.New("acknowledgment is nil")
	}

	ackModel := toModelAcknowledgment(ack)

	res := r.db.WithContext(ctx).Model(&model.Acknowledgment{}).Where("id = ?", ackModel.ID).Updates(map[string]any{
		"consents":       ackModel.Consents,
		"voice_settings": ackModel.VoiceSettings,
		"stats":          ackModel.Stats,
		"exit_reason":    ackModel.ExitReason,
		"feedback":       ackModel.Feedback,
		"updated_at":     ackModel.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAcknowledgmentNotFound
	}
	return nil
}

func (r *PostgresAcknowledgmentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var acks []model.Acknowledgment
	if err := r.db.WithContext(ctx).Find(&acks, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Acknowledgment, 0, len(acks))
	for i := range acks {
		result = append(result, toDomainAcknowledgment(&acks[i]))
	}
	return result, nil
}

func toModelSession(session *domain.Session) *model.Session {
	var startedAt, endedAt *time.Time
	if !session.StartedAt.IsZero() {
		t := session.StartedAt.UTC()
		startedAt = &t
	}
	if !session.EndedAt.IsZero() {
		t := session.EndedAt.UTC()
		endedAt = &t
	}

	participants := make([]model.Participant, 0, len(session.Participants))
	for _, p := range session.Participants {
		if p == nil {
			continue
		}
		status := p.Status
		if status == "" {
			status = domain.ConnectionDisconnected
		}
		participants = append(participants, model.Participant{
			ID:           p.ID,
			SessionID:    session.ID,
			UserID:       p.UserID,
			Alias:        p.Alias,
			IsHost:       p.IsHost,
			IsModerator:  p.IsModerator,
			IsBlocked:    p.IsBlocked,
			IsMuted:      p.IsMuted,
			HandRaised:   p.HandRaised,
			Status:       string(status),
			JoinedAt:     p.JoinedAt.UTC(),
			SpeakingTime: int64(p.SpeakingTime),
		})
	}

	return &model.Session{
		ID:                session.ID,
		Topic:             session.Topic,
		Description:       session.Description,
		Emoji:             session.Emoji,
		HostID:            session.HostID,
		HostAlias:         session.HostAlias,
		Status:            string(session.Status),
		ScheduledAt:       session.ScheduledAt,
		EstimatedDuration: int64(session.EstimatedDuration),
		StartedAt:         startedAt,
		EndedAt:           endedAt,
		ExpiresAt:         session.ExpiresAt.UTC(),
		MaxParticipants:   session.MaxParticipants,
		ModerationLevel:   string(session.ModerationLevel),

		AllowAnonymous:          session.AllowAnonymous,
		AudioOnly:               session.AudioOnly,
		ModerationEnabled:       session.ModerationEnabled,
		EmergencyContactEnabled: session.EmergencyContactEnabled,
		AIMonitoring:            session.AIMonitoring,
		IsRecorded:              session.IsRecorded,

		CreatedAt:    session.CreatedAt.UTC(),
		Participants: participants,
	}
}

func toDomainSession(session *model.Session) *domain.Session {
	participants := make([]*domain.Participant, 0, len(session.Participants))
	for i := range session.Participants {
		p := session.Participants[i]
		status := domain.ConnectionStatus(p.Status)
		if status == "" {
			status = domain.ConnectionDisconnected
		}
		participants = append(participants, &domain.Participant{
			ID:           p.ID,
			UserID:       p.UserID,
			Alias:        p.Alias,
			IsHost:       p.IsHost,
			IsModerator:  p.IsModerator,
			IsBlocked:    p.IsBlocked,
			IsMuted:      p.IsMuted,
			HandRaised:   p.HandRaised,
			Status:       status,
			JoinedAt:     p.JoinedAt.UTC(),
			SpeakingTime: time.Duration(p.SpeakingTime),
		})
	}

	var startedAt, endedAt time.Time
	if session.StartedAt != nil {
		startedAt = session.StartedAt.UTC()
	}
	if session.EndedAt != nil {
		endedAt = session.EndedAt.UTC()
	}

	return &domain.Session{
		ID:                session.ID,
		Topic:             session.Topic,
		Description:       session.Description,
		Emoji:             session.Emoji,
		HostID:            session.HostID,
		HostAlias:         session.HostAlias,
		Status:            domain.SessionStatus(session.Status),
		ScheduledAt:       session.ScheduledAt,
		EstimatedDuration: time.Duration(session.EstimatedDuration),
		StartedAt:         startedAt,
		EndedAt:           endedAt,
		ExpiresAt:         session.ExpiresAt.UTC(),
		MaxParticipants:   session.MaxParticipants,
		Participants:      participants,
		ModerationLevel:   domain.ModerationLevel(session.ModerationLevel),

		AllowAnonymous:          session.AllowAnonymous,
		AudioOnly:               session.AudioOnly,
		ModerationEnabled:       session.ModerationEnabled,
		EmergencyContactEnabled: session.EmergencyContactEnabled,
		AIMonitoring:            session.AIMonitoring,
		IsRecorded:              session.IsRecorded,

		CreatedAt: session.CreatedAt.UTC(),
	}
}

func toModelInvitation(invitation *domain.Invitation) *model.Invitation {
	var expiresAt *time.Time
	if !invitation.ExpiresAt.IsZero() {
		t := invitation.ExpiresAt.UTC()
		expiresAt = &t
	}

	restrictions, _ := json.Marshal(invitation.Restrictions)
	settings, _ := json.Marshal(invitation.Settings)

	uses := make([]model.InvitationUse, 0, len(invitation.UsageLog))
	for _, entry := range invitation.UsageLog {
		uses = append(uses, model.InvitationUse{
			InvitationID: invitation.ID,
			UserID:       entry.UserID,
			IP:           entry.IP,
			UserAgent:    entry.UserAgent,
			Timestamp:    entry.Timestamp.UTC(),
			Acknowledged: entry.Acknowledged,
		})
	}

	return &model.Invitation{
		ID:           invitation.ID,
		SessionID:    invitation.SessionID,
		Code:         invitation.Code,
		CreatedBy:    invitation.CreatedBy,
		MaxUses:      invitation.MaxUses,
		CurrentUses:  invitation.CurrentUses,
		Restrictions: string(restrictions),
		Settings:     string(settings),
		IsActive:     invitation.IsActive,
		CreatedAt:    invitation.CreatedAt.UTC(),
		ExpiresAt:    expiresAt,
		Uses:         uses,
	}
}

func toDomainInvitation(invitation *model.Invitation) *domain.Invitation {
	var restrictions domain.InvitationRestrictions
	var settings domain.InvitationSettings
	_ = json.Unmarshal([]byte(invitation.Restrictions), &restrictions)
	_ = json.Unmarshal([]byte(invitation.Settings), &settings)

	usageLog := make([]domain.UsageEntry, 0, len(invitation.Uses))
	for _, use := range invitation.Uses {
		usageLog = append(usageLog, domain.UsageEntry{
			UserID:       use.UserID,
			IP:           use.IP,
			UserAgent:    use.UserAgent,
			Timestamp:    use.Timestamp.UTC(),
			Acknowledged: use.Acknowledged,
		})
	}

	var expiresAt time.Time
	if invitation.ExpiresAt != nil {
		expiresAt = invitation.ExpiresAt.UTC()
	}

	return &domain.Invitation{
		ID:           invitation.ID,
		SessionID:    invitation.SessionID,
		Code:         invitation.Code,
		CreatedBy:    invitation.CreatedBy,
		MaxUses:      invitation.MaxUses,
		CurrentUses:  invitation.CurrentUses,
		UsageLog:     usageLog,
		Restrictions: restrictions,
		Settings:     settings,
		IsActive:     invitation.IsActive,
		CreatedAt:    invitation.CreatedAt.UTC(),
		ExpiresAt:    expiresAt,
	}
}

func toModelAcknowledgment(ack *domain.Acknowledgment) *model.Acknowledgment {
	consents, _ := json.Marshal(ack.Consents)
	voiceSettings, _ := json.Marshal(ack.VoiceSettings)
	stats, _ := json.Marshal(ack.Stats)

	return &model.Acknowledgment{
		ID:            ack.ID,
		SessionID:     ack.SessionID,
		UserID:        ack.UserID,
		Type:          string(ack.Type),
		Consents:      string(consents),
		VoiceSettings: string(voiceSettings),
		Stats:         string(stats),
		ExitReason:    ack.ExitReason,
		Feedback:      ack.Feedback,
		CreatedAt:     ack.CreatedAt.UTC(),
		UpdatedAt:     ack.UpdatedAt.UTC(),
	}
}

func toDomainAcknowledgment(ack *model.Acknowledgment) *domain.Acknowledgment {
	var consents domain.ConsentFlags
	var voiceSettings domain.VoiceSettings
	var stats domain.ParticipationStats
	_ = json.Unmarshal([]byte(ack.Consents), &consents)
	_ = json.Unmarshal([]byte(ack.VoiceSettings), &voiceSettings)
	_ = json.Unmarshal([]byte(ack.Stats), &stats)

	return &domain.Acknowledgment{
		ID:            ack.ID,
		SessionID:     ack.SessionID,
		UserID:        ack.UserID,
		Type:          domain.AcknowledgmentType(ack.Type),
		Consents:      consents,
		VoiceSettings: voiceSettings,
		Stats:         stats,
		ExitReason:    ack.ExitReason,
		Feedback:      ack.Feedback,
		CreatedAt:     ack.CreatedAt.UTC(),
		UpdatedAt:     ack.UpdatedAt.UTC(),
	}
}
