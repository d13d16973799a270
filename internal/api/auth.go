package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/auth"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/models"
)

// AuthHandler handles authentication routes
type AuthHandler struct {
	DB database.UserStore
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db database.UserStore) *AuthHandler {
	return &AuthHandler{DB: db}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.UserRegistration
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.DB.CreateUser(c.Request.Context(), input.Name, input.Email, hashedPassword)
	if errors.Is(err, database.ErrUserAlreadyExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	}
	if err != nil {
		log.Error("Failed to create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user.Response(true))
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.UserLogin
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.DB.GetUserByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, database.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		log.Error("Failed to retrieve user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}

	if !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, expiry, err := auth.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"expiry": expiry,
		"user":   user.Response(true),
	})
}

// GetMe gets the current user profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.DB.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Response(true))
}

// GetAllUsers lists every profile except the caller's, for swiping
func (h *AuthHandler) GetAllUsers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	users, err := h.DB.GetAllUsers(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.Response(false))
	}
	c.JSON(http.StatusOK, out)
}

// UpdateMe edits the caller's profile. Omitted fields are left unchanged.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input models.ProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.DB.UpdateUser(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Response(true))
}

// UpgradePremium marks the caller as a premium member
func (h *AuthHandler) UpgradePremium(c *gin.Context) {
	h.setPremium(c, true)
}

// CancelPremium drops the caller back to the free tier
func (h *AuthHandler) CancelPremium(c *gin.Context) {
	h.setPremium(c, false)
}

func (h *AuthHandler) setPremium(c *gin.Context, premium bool) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.DB.SetPremium(c.Request.Context(), userID, premium)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info("User %s premium=%t", userID, premium)
	c.JSON(http.StatusOK, user.Response(true))
}
