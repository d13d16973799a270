package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/suggest"
)

// MatchHandler serves the caller's matches
type MatchHandler struct {
	Users    database.UserStore
	Matches  *matching.Service
	Gate     *chat.Gate
	Suggests *suggest.Service
}

func NewMatchHandler(users database.UserStore, m *matching.Service, g *chat.Gate, s *suggest.Service) *MatchHandler {
	return &MatchHandler{Users: users, Matches: m, Gate: g, Suggests: s}
}

// List returns the caller's matches with chat availability
func (h *MatchHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	views, err := h.Matches.ListFor(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Get returns one match
func (h *MatchHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.Matches.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Revoke deletes a date match the caller expressed interest in
func (h *MatchHandler) Revoke(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Matches.RevokeMatch(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Suggestions returns conversation ideas for premium users
func (h *MatchHandler) Suggestions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	m, err := h.Gate.Load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !m.HasParticipant(userID) {
		respondError(c, chat.ErrNotFound)
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	other, err := h.Users.GetUserByID(ctx, m.Other(userID))
	if err != nil {
		respondError(c, err)
		return
	}

	lines, err := h.Suggests.ForMatch(ctx, user, other, m)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": lines})
}
