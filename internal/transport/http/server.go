package http

import (
	"github.com/gin-gonic/gin"

	"consultbot/internal/bootstrap"
	"consultbot/internal/transport/http/handler"
	"consultbot/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/readyz", healthHandler.Ready)

	chatHandler := handler.NewChatHandler(app.Chat)
	adminHandler := handler.NewAdminHandler(app.Admin)
	knowledgeHandler := handler.NewKnowledgeHandler(app.Index, app.Retriever)

	v1 := router.Group("/api/v1")
	v1.POST("/chat/messages", chatHandler.SendMessage)

	adminGroup := v1.Group("/admin")
	adminGroup.POST("/login", adminHandler.Login)

	protected := adminGroup.Group("")
	protected.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	protected.POST("/knowledge/rebuild", knowledgeHandler.Rebuild)
	protected.GET("/knowledge/status", knowledgeHandler.Status)
	protected.GET("/knowledge/search", knowledgeHandler.Search)
	if app.Transcripts != nil {
		transcriptHandler := handler.NewTranscriptHandler(app.Transcripts)
		protected.GET("/transcripts", transcriptHandler.List)
	}

	return router
}
