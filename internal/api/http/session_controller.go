package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/havenward/sanctum/internal/api/http/converter"
	"github.com/havenward/sanctum/internal/broadcast"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/service"
)

type SessionController struct {
	sessions service.SessionInteractor
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
}

func NewSessionController(sessions service.SessionInteractor, hub *broadcast.Hub) *SessionController {
	return &SessionController{
		sessions: sessions,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (c *SessionController) CreateSession(ctx *gin.Context) {
	type CreateSessionRequest struct {
		Topic             string     `json:"topic" binding:"required"`
		Description       string     `json:"description"`
		Emoji             string     `json:"emoji"`
		HostID            string     `json:"host_id" binding:"required"`
		HostAlias         string     `json:"host_alias" binding:"required"`
		ScheduledAt       *time.Time `json:"scheduled_date_time"`
		EstimatedMinutes  int        `json:"estimated_duration_minutes"`
		MaxParticipants   int        `json:"max_participants"`
		ModerationLevel   string     `json:"moderation_level"`
		AllowAnonymous    *bool      `json:"allow_anonymous"`
		AudioOnly         *bool      `json:"audio_only"`
		ModerationEnabled *bool      `json:"moderation_enabled"`
		EmergencyContact  bool       `json:"emergency_contact_enabled"`
		AIMonitoring      bool       `json:"ai_monitoring"`
		IsRecorded        bool       `json:"is_recorded"`
	}
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid host uuid", "details": err.Error()})
		return
	}

	params := service.CreateSessionParams{
		Topic:             req.Topic,
		Description:       req.Description,
		Emoji:             req.Emoji,
		HostID:            hostID,
		HostAlias:         req.HostAlias,
		ScheduledAt:       req.ScheduledAt,
		EstimatedDuration: time.Duration(req.EstimatedMinutes) * time.Minute,
		MaxParticipants:   req.MaxParticipants,
		ModerationLevel:   domain.ModerationLevel(req.ModerationLevel),

		EmergencyContactEnabled: req.EmergencyContact,
		AIMonitoring:            req.AIMonitoring,
		IsRecorded:              req.IsRecorded,
	}
	if params.MaxParticipants == 0 {
		params.MaxParticipants = 8
	}
	// Anonymity, audio-only and moderation default on; explicit false
	// switches them off.
	params.AllowAnonymous = req.AllowAnonymous == nil || *req.AllowAnonymous
	params.AudioOnly = req.AudioOnly == nil || *req.AudioOnly
	params.ModerationEnabled = req.ModerationEnabled == nil || *req.ModerationEnabled

	session, err := c.sessions.CreateSession(ctx.Request.Context(), params)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToApi(session)})
}

func (c *SessionController) GetSession(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	session, err := c.sessions.GetSession(ctx.Request.Context(), sessionID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToApi(session)})
}

func (c *SessionController) SessionStatus(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	info, err := c.sessions.SessionStatus(ctx.Request.Context(), sessionID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, info)
}

func (c *SessionController) ListParticipants(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	participants, err := c.sessions.ListParticipants(ctx.Request.Context(), sessionID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	result := make([]converter.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		result = append(result, converter.ParticipantToApi(p))
	}
	ctx.JSON(http.StatusOK, gin.H{"participants": result})
}

func (c *SessionController) EndSession(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	type EndSessionRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}
	var req EndSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user uuid"})
		return
	}

	if err := c.sessions.End(ctx.Request.Context(), sessionID, userID); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (c *SessionController) ActiveAlerts(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	alerts, err := c.sessions.ActiveAlerts(ctx.Request.Context(), sessionID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// JoinSession upgrades to a websocket, admits the participant and pumps
// session events out while reading signal frames in.
func (c *SessionController) JoinSession(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	alias := ctx.Query("alias")
	if alias == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "alias is required"})
		return
	}

	userID := uuid.Nil
	if userIDStr := ctx.Query("user_id"); userIDStr != "" {
		userID, err = uuid.Parse(userIDStr)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}

	result, err := c.sessions.Join(context.Background(), sessionID, service.JoinRequest{
		UserID: userID,
		Alias:  alias,
	})
	if err != nil {
		_ = conn.WriteJSON(gin.H{"error": err.Error()})
		conn.Close()
		return
	}

	// Too early for a scheduled session: tell the client when to come
	// back and hang up.
	if result.Scheduled {
		_ = conn.WriteJSON(gin.H{
			"type":                "scheduled",
			"scheduled_date_time": result.ScheduledAt,
			"time_until_start":    result.TimeUntilStart.String(),
		})
		conn.Close()
		return
	}

	participant := result.Participant
	sub := c.hub.Subscribe(sessionID, participant.ID)

	go forwardSessionEvents(sub, conn)

	_ = conn.WriteJSON(gin.H{
		"type":           "joined",
		"session_id":     sessionID.String(),
		"participant_id": participant.ID,
		"alias":          participant.Alias,
		"is_host":        participant.IsHost,
	})

	for {
		var msg domain.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			sub.Close()
			_ = c.sessions.Leave(context.Background(), sessionID, participant.ID, "disconnected")
			conn.Close()
			return
		}
		msg.SenderID = participant.ID

		if err := c.sessions.HandleSignal(context.Background(), sessionID, participant.ID, &msg); err != nil {
			_ = conn.WriteJSON(gin.H{"error": err.Error()})
			continue
		}
	}
}

func forwardSessionEvents(sub *broadcast.Subscriber, conn *websocket.Conn) {
	for event := range sub.C {
		if err := conn.WriteJSON(event); err != nil {
			sub.Close()
			return
		}
	}
}
