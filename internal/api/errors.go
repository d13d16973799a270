package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/suggest"
)

var log = logger.New("api")

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	var rateErr *chat.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		secs := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many messages, try again shortly", "retry_after": secs})

	case errors.Is(err, chat.ErrChatLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "Chat locked until the other person responds"})
	case errors.Is(err, matching.ErrNotInterested),
		errors.Is(err, suggest.ErrPremiumRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	// outsiders must not learn that the match exists
	case errors.Is(err, chat.ErrNotMember):
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})

	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, matching.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, chat.ErrNotFound),
		errors.Is(err, matching.ErrNotFound),
		errors.Is(err, database.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
	case errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, database.ErrDateIdeaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Date idea not found"})

	case errors.Is(err, matching.ErrAuthorReplied),
		errors.Is(err, matching.ErrNotDateInterest),
		errors.Is(err, database.ErrMatchEngaged):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})

	default:
		log.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
