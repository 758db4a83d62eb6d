package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialblog/backend/internal/app"
	"socialblog/backend/pkg/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	application, err := app.New(ctx, &config.Config{
		Env:               "test",
		GraphBackend:      config.GraphBackendMemory,
		GraphQueryTimeout: time.Second,
		DBDriver:          "sqlite",
		DBFilePath:        "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		DBMaxOpenConns:    1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { application.Close(ctx) })
	return application.Router()
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestCreatePostEndpoint_InvalidRequest(t *testing.T) {
	router := newTestRouter(t)

	// Missing content
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/posts", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/api/posts", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
