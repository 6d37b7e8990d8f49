package handler

import (
	"net/http"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/middleware"
	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	config   *config.Config
	sessions service.SessionStore
}

func NewAuthHandler(cfg *config.Config, sessions service.SessionStore) *AuthHandler {
	return &AuthHandler{config: cfg, sessions: sessions}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// Login checks the password against the configured bcrypt hash and issues a
// session token, both in the body and as an HttpOnly cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil {
		logger.Info(c.Request.Context(), "login failed", "username", req.Username, "reason", "unknown user")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Info(c.Request.Context(), "login failed", "username", req.Username, "reason", "password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, &h.config.Auth)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to sign session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.setSessionCookie(c, token, int(time.Until(expiresAt).Seconds()))

	logger.Info(c.Request.Context(), "user logged in", "user_id", user.ID, "role", user.Role.String())
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role.String(),
	})
}

// Logout revokes the current session token and clears the cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	if jti := middleware.GetTokenID(c); jti != "" && h.sessions != nil {
		if err := h.sessions.Revoke(c.Request.Context(), jti, middleware.GetTokenExpiry(c)); err != nil {
			logger.Error(c.Request.Context(), "failed to revoke session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
			return
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":  middleware.GetUserID(c),
		"username": middleware.GetUsername(c),
		"role":     middleware.GetRole(c).String(),
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.config.Auth.CookieName, value, maxAge, "/", "", h.config.Auth.SecureCookie, true)
}
