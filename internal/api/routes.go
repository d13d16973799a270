package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/suggest"
	"github.com/ammar1510/spark/internal/websocket"
)

// Deps is everything the HTTP layer is built from
type Deps struct {
	DB       database.DBInterface
	Gate     *chat.Gate
	Matches  *matching.Service
	Suggests *suggest.Service
	Sockets  *websocket.Manager
}

// RegisterRoutes mounts the public and authenticated API on router
func RegisterRoutes(router *gin.Engine, d Deps) {
	authHandler := NewAuthHandler(d.DB)
	swipeHandler := NewSwipeHandler(d.Matches)
	ideaHandler := NewDateIdeaHandler(d.DB, d.Matches)
	matchHandler := NewMatchHandler(d.DB, d.Matches, d.Gate, d.Suggests)
	messageHandler := NewMessageHandler(d.Gate, d.Matches)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	authorized := router.Group("/api")
	authorized.Use(AuthMiddleware())
	{
		authorized.GET("/auth/me", authHandler.GetMe)
		authorized.PUT("/auth/me", authHandler.UpdateMe)
		authorized.POST("/auth/me/premium", authHandler.UpgradePremium)
		authorized.DELETE("/auth/me/premium", authHandler.CancelPremium)
		authorized.GET("/users", authHandler.GetAllUsers)
		authorized.POST("/users/:id/like", swipeHandler.Like)

		authorized.GET("/date-ideas", ideaHandler.List)
		authorized.POST("/date-ideas", ideaHandler.Create)
		authorized.GET("/date-ideas/:id", ideaHandler.Get)
		authorized.PUT("/date-ideas/:id/interest", ideaHandler.ExpressInterest)
		authorized.DELETE("/date-ideas/:id/interest", ideaHandler.RevokeInterest)
		authorized.POST("/date-ideas/:id/interest/toggle", ideaHandler.ToggleInterest)

		authorized.GET("/matches", matchHandler.List)
		authorized.GET("/matches/:id", matchHandler.Get)
		authorized.DELETE("/matches/:id", matchHandler.Revoke)
		authorized.GET("/matches/:id/suggestions", matchHandler.Suggestions)
		authorized.GET("/matches/:id/messages", messageHandler.GetMessages)
		authorized.POST("/matches/:id/messages", messageHandler.SendMessage)
	}

	if d.Sockets != nil {
		// browsers cannot set headers on websocket requests
		router.GET("/api/ws", TokenAuthMiddleware(), d.Sockets.HandleWebSocket)
	}
}
