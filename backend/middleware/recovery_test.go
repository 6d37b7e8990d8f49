package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.Use(func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, "u-7")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.GET("/api/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/dashboard", func(c *gin.Context) {
		panic("page panic")
	})
	router.GET("/api/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	t.Run("api panic", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest("GET", "/api/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "Internal server error") {
			t.Error("Expected error message in response")
		}
		if !strings.Contains(body, w.Header().Get(RequestIDHeader)) {
			t.Error("Expected request ID in response")
		}
		if !strings.Contains(buf.String(), "user_id=u-7") {
			t.Errorf("Expected user_id in panic log, got %s", buf.String())
		}
	})

	t.Run("page panic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "request_id") {
			t.Error("Expected no JSON body for page routes")
		}
	})

	t.Run("normal request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/normal", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}
