package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/matching"
)

// SwipeHandler handles likes between users
type SwipeHandler struct {
	Matches *matching.Service
}

func NewSwipeHandler(m *matching.Service) *SwipeHandler {
	return &SwipeHandler{Matches: m}
}

// Like records the caller liking :id
func (h *SwipeHandler) Like(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	res, err := h.Matches.Like(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Matched {
		c.JSON(http.StatusCreated, gin.H{
			"matched": true,
			"match":   h.Matches.View(c.Request.Context(), userID, res.Match),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": false})
}
