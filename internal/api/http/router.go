package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(sessionController *SessionController, inviteController *InviteController, voiceController *VoiceController) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if sessionController != nil {
		sessions := api.Group("/sessions")
		sessions.POST("/create", sessionController.CreateSession)
		sessions.GET("/:sessionID", sessionController.GetSession)
		sessions.GET("/:sessionID/status", sessionController.SessionStatus)
		sessions.GET("/:sessionID/participants", sessionController.ListParticipants)
		sessions.GET("/:sessionID/alerts", sessionController.ActiveAlerts)
		sessions.POST("/:sessionID/end", sessionController.EndSession)
		sessions.GET("/:sessionID/ws", sessionController.JoinSession)

		if voiceController != nil {
			sessions.GET("/:sessionID/participants/:participantID/voice", voiceController.GetSettings)
			sessions.PUT("/:sessionID/participants/:participantID/voice", voiceController.UpdateSettings)
			sessions.POST("/:sessionID/participants/:participantID/speak", voiceController.Speak)
		}
	}

	if inviteController != nil {
		invitations := api.Group("/invitations")
		invitations.POST("/create", inviteController.CreateInvitation)
		invitations.POST("/join", inviteController.JoinByInvitation)
		invitations.GET("/:code", inviteController.GetInvitation)
	}

	return router
}
