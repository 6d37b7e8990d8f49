package middleware

import (
	"log/slog"
	"time"

	"github.com/faawibowo/pakta/backend/access"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one access log line per request. Must run after
// RequestID; identity fields appear once Authenticate has run.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if role := GetRole(c); role != access.RoleNone {
			attrs = append(attrs, "user_id", GetUserID(c), "role", role.String())
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.Error("request completed", attrs...)
		case status >= 400:
			slog.Warn("request completed", attrs...)
		default:
			slog.Info("request completed", attrs...)
		}
	}
}
