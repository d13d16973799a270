package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/models"
)

// MessageHandler handles message-related routes
type MessageHandler struct {
	Gate    *chat.Gate
	Matches *matching.Service
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(g *chat.Gate, m *matching.Service) *MessageHandler {
	return &MessageHandler{Gate: g, Matches: m}
}

// SendMessage posts a message into match :id. The response carries the new
// message and the match as the sender now sees it.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, msg, err := h.Gate.Send(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
		"match":   h.Matches.View(c.Request.Context(), userID, updated),
	})
}

// GetMessages returns the messages of match :id in chronological order
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	m, err := h.Gate.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !m.HasParticipant(userID) {
		respondError(c, chat.ErrNotFound)
		return
	}

	messages := m.Messages
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}
