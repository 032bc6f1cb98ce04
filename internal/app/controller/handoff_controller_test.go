package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandoffControllerTest(t *testing.T, store repository.HandoffStore) *gin.Engine {
	handoffController := NewHandoffController(service.NewHandoffService(store, time.Minute))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.PUT("/handoff/:userId", handoffController.Put)
	router.POST("/handoff/:userId/take", handoffController.Take)
	return router
}

func newMemoryStore(t *testing.T) repository.HandoffStore {
	store, err := repository.NewMemoryHandoffStore(16)
	require.NoError(t, err)
	return store
}

func TestHandoffController_PutThenTake(t *testing.T) {
	router := setupHandoffControllerTest(t, newMemoryStore(t))

	w := doJSON(router, http.MethodPut, "/handoff/user-1", map[string]string{
		"prompt": "build me a rainy day look",
		"source": "voice",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Handoff stored"}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/handoff/user-1/take", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Handoff model.Handoff `json:"handoff"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "build me a rainy day look", response.Handoff.Prompt)
	assert.Equal(t, "voice", response.Handoff.Source)

	// slot is single-use
	w = doJSON(router, http.MethodPost, "/handoff/user-1/take", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandoffController_PutOverwrites(t *testing.T) {
	router := setupHandoffControllerTest(t, newMemoryStore(t))

	doJSON(router, http.MethodPut, "/handoff/user-1", map[string]string{"prompt": "first"})
	doJSON(router, http.MethodPut, "/handoff/user-1", map[string]string{"prompt": "second"})

	w := doJSON(router, http.MethodPost, "/handoff/user-1/take", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "second")
}

func TestHandoffController_PutRequiresPrompt(t *testing.T) {
	router := setupHandoffControllerTest(t, newMemoryStore(t))

	w := doJSON(router, http.MethodPut, "/handoff/user-1", map[string]string{"source": "voice"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "prompt")
}

type failingHandoffStore struct{}

func (failingHandoffStore) Put(context.Context, *model.Handoff, time.Duration) error {
	return errors.New("redis: connection refused")
}

func (failingHandoffStore) Take(context.Context, string) (*model.Handoff, error) {
	return nil, errors.New("redis: connection refused")
}

func TestHandoffController_StoreUnavailable(t *testing.T) {
	router := setupHandoffControllerTest(t, failingHandoffStore{})

	w := doJSON(router, http.MethodPut, "/handoff/user-1", map[string]string{"prompt": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "HANDOFF_UNAVAILABLE")

	w = doJSON(router, http.MethodPost, "/handoff/user-1/take", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
