package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 response and logs the stack with
// the caller's request ID and identity. API callers get a JSON body carrying
// the request ID; pages get a bare status.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestID := GetRequestID(c)
			logger.Error(c.Request.Context(), "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			if !isAPIPath(c.Request.URL.Path) {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}()

		c.Next()
	}
}
