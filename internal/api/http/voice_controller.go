package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/service"
)

type VoiceController struct {
	voice service.VoiceInteractor
}

func NewVoiceController(voice service.VoiceInteractor) *VoiceController {
	return &VoiceController{voice: voice}
}

func (c *VoiceController) UpdateSettings(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	participantID := ctx.Param("participantID")

	var settings domain.VoiceSettings
	if err := ctx.ShouldBindJSON(&settings); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	saved, err := c.voice.UpdateSettings(ctx.Request.Context(), sessionID, participantID, settings)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"voice_settings": saved})
}

func (c *VoiceController) GetSettings(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	settings, err := c.voice.GetSettings(ctx.Request.Context(), sessionID, ctx.Param("participantID"))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"voice_settings": settings})
}

func (c *VoiceController) Speak(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	type SpeakRequest struct {
		Text string `json:"text" binding:"required"`
	}
	var req SpeakRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	audio, err := c.voice.Synthesize(ctx.Request.Context(), sessionID, ctx.Param("participantID"), req.Text)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if audio == nil {
		// Synthesis is unavailable; the text already went out over chat.
		ctx.Status(http.StatusNoContent)
		return
	}

	ctx.Data(http.StatusOK, "audio/mpeg", audio)
}
