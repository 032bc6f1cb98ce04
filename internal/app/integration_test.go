package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stylhelpr/stylhelpr-backend/config"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/controller"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/service"
	"github.com/stylhelpr/stylhelpr-backend/internal/db"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
	"github.com/stylhelpr/stylhelpr-backend/internal/router"
	ws "github.com/stylhelpr/stylhelpr-backend/internal/websocket"
	"github.com/stylhelpr/stylhelpr-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-test-secret"

type TestServer struct {
	Router *gin.Engine
}

func setupIntegrationTest(t *testing.T, authRequired bool) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, BasePath: "/api"},
		Auth:   config.AuthConfig{JWTSecret: testSecret, Required: authRequired},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:8081"}},
	}

	handoffStore, err := repository.NewMemoryHandoffStore(64)
	require.NoError(t, err)

	hub := ws.NewHub()
	outfitService := service.NewCustomOutfitService(repository.NewCustomOutfitRepository(testDB), hub)
	handoffService := service.NewHandoffService(handoffStore, time.Minute)

	r := router.NewRouter(
		controller.NewCustomOutfitController(outfitService),
		controller.NewHandoffController(handoffService),
		nil,
		controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		cfg,
	)

	return &TestServer{Router: r.Setup()}
}

func (s *TestServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, userID string) string {
	token, err := util.GenerateToken(userID, userID+"@example.com", testSecret, "", time.Hour)
	require.NoError(t, err)
	return token
}

func TestCustomOutfitLifecycle(t *testing.T) {
	server := setupIntegrationTest(t, false)

	// Step 1: create with only user_id and name
	w := server.do(t, http.MethodPost, "/api/custom-outfits", "", map[string]interface{}{
		"user_id": "user-1",
		"name":    "Gallery opening",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Outfit model.CustomOutfit `json:"outfit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	outfitID := created.Outfit.ID
	require.NotEmpty(t, outfitID)

	// Step 2: list returns exactly that row with null ids
	w = server.do(t, http.MethodGet, "/api/custom-outfits/user-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Gallery opening", listed[0]["name"])
	for _, key := range []string{"top_id", "bottom_id", "shoes_id", "notes", "rating", "thumbnail_url"} {
		assert.Nil(t, listed[0][key], key)
	}

	// Step 3: update notes only
	time.Sleep(5 * time.Millisecond)
	w = server.do(t, http.MethodPut, "/api/custom-outfits/"+outfitID, "", map[string]interface{}{
		"notes": "swap loafers for boots",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		Outfit model.CustomOutfit `json:"outfit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.NotNil(t, updated.Outfit.Name)
	assert.Equal(t, "Gallery opening", *updated.Outfit.Name)
	assert.Equal(t, "swap loafers for boots", *updated.Outfit.Notes)
	assert.True(t, updated.Outfit.UpdatedAt.After(created.Outfit.UpdatedAt))

	// Step 4: count
	w = server.do(t, http.MethodGet, "/api/custom-outfits/count/user-1", "", nil)
	assert.JSONEq(t, `{"count": 1}`, w.Body.String())

	// Step 5: delete twice, then the list is empty
	for i := 0; i < 2; i++ {
		w = server.do(t, http.MethodDelete, "/api/custom-outfits/"+outfitID, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message": "Custom outfit deleted"}`, w.Body.String())
	}

	w = server.do(t, http.MethodGet, "/api/custom-outfits/user-1", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandoffFlow(t *testing.T) {
	server := setupIntegrationTest(t, false)

	w := server.do(t, http.MethodPut, "/api/handoff/user-1", "", map[string]string{"prompt": "something for brunch"})
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(t, http.MethodPost, "/api/handoff/user-1/take", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "something for brunch")

	w = server.do(t, http.MethodPost, "/api/handoff/user-1/take", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthRequired(t *testing.T) {
	server := setupIntegrationTest(t, true)

	w := server.do(t, http.MethodGet, "/api/custom-outfits/user-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = server.do(t, http.MethodGet, "/api/custom-outfits/user-1", tokenFor(t, "user-1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// another user's list
	w = server.do(t, http.MethodGet, "/api/custom-outfits/user-2", tokenFor(t, "user-1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOwnershipOnUpdateAndDelete(t *testing.T) {
	server := setupIntegrationTest(t, false)

	w := server.do(t, http.MethodPost, "/api/custom-outfits", tokenFor(t, "owner"), map[string]interface{}{
		"user_id": "owner",
		"name":    "Mine",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Outfit model.CustomOutfit `json:"outfit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	intruder := tokenFor(t, "intruder")
	w = server.do(t, http.MethodPut, "/api/custom-outfits/"+created.Outfit.ID, intruder, map[string]string{"notes": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = server.do(t, http.MethodDelete, "/api/custom-outfits/"+created.Outfit.ID, intruder, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = server.do(t, http.MethodDelete, "/api/custom-outfits/"+created.Outfit.ID, tokenFor(t, "owner"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	server := setupIntegrationTest(t, false)

	w := server.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodOptions, "/api/custom-outfits", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:8081", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestThumbnailRouteDisabledWithoutStorage(t *testing.T) {
	server := setupIntegrationTest(t, false)

	w := server.do(t, http.MethodPost, "/api/custom-outfits/thumbnail-upload", "", map[string]string{
		"filename":     "look.png",
		"content_type": "image/png",
		"user_id":      "user-1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
