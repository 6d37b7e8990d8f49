package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/faawibowo/pakta/backend/access"
	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims. The token ID (jti) is what logout
// revokes.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for user
func GenerateToken(user *config.User, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken verifies an HS256 session token and returns its claims
func ParseToken(tokenString string, cfg *config.AuthConfig) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticate extracts the caller identity from the Authorization header or
// the session cookie. It never rejects a request: a missing, invalid, expired
// or revoked token leaves the request unauthenticated (role None) for the
// access gate to handle.
func Authenticate(cfg *config.AuthConfig, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c, cfg.CookieName)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := ParseToken(tokenString, cfg)
		if err != nil {
			logger.Debug(c.Request.Context(), "ignoring invalid session token", "error", err)
			c.Next()
			return
		}

		role := access.ParseRole(claims.Role)
		if !role.Valid() {
			logger.Warn(c.Request.Context(), "session token carries unknown role", "role", claims.Role)
			c.Next()
			return
		}

		if sessions != nil && claims.ID != "" {
			revoked, err := sessions.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error(c.Request.Context(), "session revocation check failed", "error", err)
				c.Next()
				return
			}
			if revoked {
				c.Next()
				return
			}
		}

		// Store user info in context
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", role)
		c.Set("token_id", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_expires_at", claims.ExpiresAt.Time)
		}

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, logger.RoleKey, role.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// GetUserID gets the authenticated user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString("username")
}

// GetRole gets the caller's role, RoleNone when unauthenticated
func GetRole(c *gin.Context) access.Role {
	if role, exists := c.Get("role"); exists {
		if r, ok := role.(access.Role); ok {
			return r
		}
	}
	return access.RoleNone
}

// GetTokenID gets the session token ID (jti) from context
func GetTokenID(c *gin.Context) string {
	return c.GetString("token_id")
}

// GetTokenExpiry gets the session token expiry from context
func GetTokenExpiry(c *gin.Context) time.Time {
	return c.GetTime("token_expires_at")
}
