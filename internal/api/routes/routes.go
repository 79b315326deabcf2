package routes

import (
	"github.com/careerpilot/backend/internal/api/handlers"
	"github.com/careerpilot/backend/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Chat       *handlers.ChatHandler
	Action     *handlers.ActionHandler
	Memory     *handlers.MemoryHandler
	Profile    *handlers.ProfileHandler
	Roadmap    *handlers.RoadmapHandler
	Task       *handlers.TaskHandler
	Onboarding *handlers.OnboardingHandler
	WS         *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/chat/send", d.Chat.Send)
	auth.GET("/chat/history", d.Chat.History)
	auth.POST("/chat/reset", d.Chat.Reset)
	auth.POST("/chat/conclude", d.Chat.Conclude)

	auth.POST("/chat/action/approve", d.Action.Approve)

	auth.GET("/memories", d.Memory.List)
	auth.DELETE("/memories/:memory_id", d.Memory.Delete)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)

	auth.GET("/roadmap", d.Roadmap.Get)
	auth.POST("/roadmap/generate", d.Roadmap.Generate)

	auth.GET("/tasks", d.Task.List)
	auth.POST("/tasks/:task_id/complete", d.Task.Complete)

	auth.POST("/onboarding/message", d.Onboarding.Message)

	// WebSocket
	auth.GET("/ws/chat", d.WS.ChatWS)
}
