package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/realcbb/Dify2OpenAI/internal/handler"
	"github.com/realcbb/Dify2OpenAI/internal/middleware"
)

// Setup sets up all routes
func Setup(
	h *server.Hertz,
	chatHandler *handler.ChatHandler,
	modelsHandler *handler.ModelsHandler,
	healthHandler *handler.HealthHandler,
) {
	// Global middleware
	h.Use(middleware.Recovery())
	h.Use(middleware.Logger())
	h.Use(middleware.CORS())

	// Health check routes
	h.GET("/ping", healthHandler.Ping)
	h.GET("/health/ready", healthHandler.Readiness)
	h.GET("/health/live", healthHandler.Liveness)

	// OpenAI-compatible API
	v1 := h.Group("/v1")
	{
		// POST /v1/chat/completions
		v1.POST("/chat/completions", chatHandler.CreateChatCompletion)
		// GET /v1/models
		v1.GET("/models", modelsHandler.ListModels)
	}
}
