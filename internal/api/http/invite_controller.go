package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/api/http/converter"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/service"
)

type InviteController struct {
	invites service.InviteInteractor
}

func NewInviteController(invites service.InviteInteractor) *InviteController {
	return &InviteController{invites: invites}
}

func (c *InviteController) CreateInvitation(ctx *gin.Context) {
	type CreateInvitationRequest struct {
		SessionID             string   `json:"session_id" binding:"required"`
		CreatedBy             string   `json:"created_by" binding:"required"`
		MaxUses               int      `json:"max_uses"`
		ExpiryHours           int      `json:"expiry_hours"`
		RequireAuthentication bool     `json:"require_authentication"`
		OneTimeUse            bool     `json:"one_time_use"`
		BlockedUsers          []string `json:"blocked_users"`
		RequireAcknowledgment bool     `json:"require_acknowledgment"`
		AutoJoin              bool     `json:"auto_join"`
		WelcomeMessage        string   `json:"welcome_message"`
	}
	var req CreateInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session uuid"})
		return
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator uuid"})
		return
	}

	blocked := make([]uuid.UUID, 0, len(req.BlockedUsers))
	for _, raw := range req.BlockedUsers {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid blocked user uuid", "details": raw})
			return
		}
		blocked = append(blocked, id)
	}

	invitation, err := c.invites.CreateInvitation(ctx.Request.Context(), service.CreateInvitationParams{
		SessionID:   sessionID,
		CreatedBy:   createdBy,
		MaxUses:     req.MaxUses,
		ExpiryHours: req.ExpiryHours,
		Restrictions: domain.InvitationRestrictions{
			RequireAuthentication: req.RequireAuthentication,
			BlockedUsers:          blocked,
			OneTimeUse:            req.OneTimeUse,
		},
		Settings: domain.InvitationSettings{
			RequireAcknowledgment: req.RequireAcknowledgment,
			AutoJoin:              req.AutoJoin,
			WelcomeMessage:        req.WelcomeMessage,
		},
	})
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"invitation": converter.InvitationToApi(invitation)})
}

func (c *InviteController) GetInvitation(ctx *gin.Context) {
	preview, err := c.invites.Preview(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"session":   converter.SessionToApi(preview.Session),
		"auto_join": preview.AutoJoin,
	}
	if preview.WelcomeMessage != "" {
		resp["welcome_message"] = preview.WelcomeMessage
	}
	if preview.TimeUntilStart > 0 {
		resp["time_until_start"] = preview.TimeUntilStart.String()
	}
	if preview.ConsentRequired != nil {
		resp["consent_required"] = preview.ConsentRequired
	}
	ctx.JSON(http.StatusOK, resp)
}

func (c *InviteController) JoinByInvitation(ctx *gin.Context) {
	type JoinRequest struct {
		Code          string                `json:"code" binding:"required"`
		UserID        string                `json:"user_id"`
		Alias         string                `json:"alias"`
		Acknowledged  bool                  `json:"acknowledged"`
		Consents      domain.ConsentFlags   `json:"consents"`
		VoiceSettings *domain.VoiceSettings `json:"voice_settings"`
	}
	var req JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := uuid.Nil
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user uuid"})
			return
		}
		userID = parsed
	}

	result, err := c.invites.Redeem(ctx.Request.Context(), req.Code, service.RedeemRequest{
		UserID:        userID,
		Alias:         req.Alias,
		Acknowledged:  req.Acknowledged,
		Consents:      req.Consents,
		VoiceSettings: req.VoiceSettings,
		IP:            ctx.ClientIP(),
		UserAgent:     ctx.Request.UserAgent(),
	})
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	switch result.Outcome {
	case service.OutcomeScheduled:
		ctx.JSON(http.StatusOK, gin.H{
			"outcome":             result.Outcome,
			"session":             converter.SessionToApi(result.Session),
			"scheduled_date_time": result.Session.ScheduledAt,
			"time_until_start":    result.TimeUntilStart.String(),
			"welcome_message":     result.WelcomeMessage,
		})
	case service.OutcomeRequiresAcknowledgment:
		ctx.JSON(http.StatusPreconditionRequired, gin.H{
			"outcome":          result.Outcome,
			"session":          converter.SessionToApi(result.Session),
			"welcome_message":  result.WelcomeMessage,
			"consent_required": result.ConsentRequired,
		})
	default:
		resp := gin.H{
			"outcome":         result.Outcome,
			"session":         converter.SessionToApi(result.Session),
			"welcome_message": result.WelcomeMessage,
			"channel_token":   result.ChannelToken,
			"auto_join":       result.AutoJoin,
		}
		if result.Acknowledgment != nil {
			resp["acknowledgment_id"] = result.Acknowledgment.ID
		}
		ctx.JSON(http.StatusOK, resp)
	}
}
