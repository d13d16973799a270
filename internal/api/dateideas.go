package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/models"
)

// DateIdeaHandler handles the date idea marketplace and interest in ideas
type DateIdeaHandler struct {
	DB      database.DateIdeaStore
	Matches *matching.Service
}

func NewDateIdeaHandler(db database.DateIdeaStore, m *matching.Service) *DateIdeaHandler {
	return &DateIdeaHandler{DB: db, Matches: m}
}

// Create posts a new date idea authored by the caller
func (h *DateIdeaHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.DateIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryUncategorized
	}
	if !req.Category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}

	idea, err := h.DB.CreateDateIdea(c.Request.Context(), &models.DateIdea{
		AuthorID:    userID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Location:    strings.TrimSpace(req.Location),
		Date:        req.Date,
		Budget:      req.Budget,
		DressCode:   req.DressCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, idea)
}

// List returns all date ideas, newest first
func (h *DateIdeaHandler) List(c *gin.Context) {
	ideas, err := h.DB.ListDateIdeas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ideas)
}

// Get returns one date idea
func (h *DateIdeaHandler) Get(c *gin.Context) {
	idea, err := h.DB.GetDateIdea(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, idea)
}

// ExpressInterest opens a date chat with the idea's author. Repeating the
// call returns the existing chat with 200.
func (h *DateIdeaHandler) ExpressInterest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	m, created, err := h.Matches.ExpressInterest(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, h.Matches.View(c.Request.Context(), userID, m))
}

// RevokeInterest withdraws the caller's interest
func (h *DateIdeaHandler) RevokeInterest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.Matches.RevokeInterest(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleInterest flips the caller's interest in an idea
func (h *DateIdeaHandler) ToggleInterest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	m, interested, err := h.Matches.ToggleInterest(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !interested {
		c.JSON(http.StatusOK, gin.H{"interested": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"interested": true,
		"match":      h.Matches.View(c.Request.Context(), userID, m),
	})
}
