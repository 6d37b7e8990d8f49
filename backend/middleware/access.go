package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/faawibowo/pakta/backend/access"
	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// AccessGate enforces the route table. Pages are redirected to the login or
// unauthorized page; API routes get a 401 or 403 JSON response instead.
// It must run after Authenticate.
func AccessGate(gate *access.Gate, recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		role := GetRole(c)
		decision := gate.Evaluate(reqPath, role)

		recorder.AccessDecision(c.Request.Context(), decision.String(), role.String())

		switch decision {
		case access.Allow:
			c.Next()

		case access.RedirectToLogin:
			logger.Debug(c.Request.Context(), "unauthenticated request", "path", reqPath)
			if isAPIPath(reqPath) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()

		default:
			logger.Info(c.Request.Context(), "access denied", "path", reqPath)
			if isAPIPath(reqPath) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
				return
			}
			c.Redirect(http.StatusFound, UnauthorizedPath)
			c.Abort()
		}
	}
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
