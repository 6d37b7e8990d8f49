package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faawibowo/pakta/backend/access"
	"github.com/gin-gonic/gin"
)

func TestRegisterPages(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("role", access.RoleInternal)
		c.Set("username", "intern<script>")
		c.Next()
	})
	RegisterPages(router)

	for _, p := range Pages {
		t.Run(p.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", p.Path, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, `data-page="`+p.Name+`"`) {
				t.Errorf("Expected page name in shell, got %s", body)
			}
			if !strings.Contains(body, `data-role="Internal"`) {
				t.Errorf("Expected role in shell, got %s", body)
			}
			if strings.Contains(body, "<script>") {
				t.Error("Expected username to be escaped")
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	router := gin.New()
	RegisterPages(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/not-found" {
		t.Errorf("Expected redirect to /not-found, got %d %s", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
