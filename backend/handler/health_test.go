package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/model"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
)

type failingCountStore struct {
	*service.MemoryStore
}

func (failingCountStore) Count(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	store.CreateContract(context.Background(), &model.Contract{ID: "h-1", Title: "Lease", Status: model.StatusActive})
	store.CreateContract(context.Background(), &model.Contract{ID: "h-2", Title: "NDA", Status: model.StatusPending})

	router := gin.New()
	router.GET("/health", Health(store))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response struct {
		Status    string `json:"status"`
		Contracts int64  `json:"contracts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("Expected status ok, got %s", response.Status)
	}
	if response.Contracts != 2 {
		t.Errorf("Expected 2 contracts, got %d", response.Contracts)
	}
}

func TestHealthStoreFailure(t *testing.T) {
	store := failingCountStore{service.NewMemoryStore(&config.StoreConfig{})}

	router := gin.New()
	router.GET("/health", Health(store))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}
