package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	ws "github.com/stylhelpr/stylhelpr-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWebSocketControllerTest(t *testing.T) (*ws.Hub, *httptest.Server) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/outfits", NewWebSocketController(hub, nil).OutfitEvents)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func TestWebSocketController_ReceivesOutfitEvents(t *testing.T) {
	hub, server := setupWebSocketControllerTest(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/outfits?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)

	name := "Weekend"
	hub.PublishOutfitEvent("user-1", ws.EventOutfitCreated, &model.CustomOutfit{ID: "o1", UserID: "user-1", Name: &name})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, ws.EventOutfitCreated, event["type"])
	assert.Equal(t, "o1", event["outfit_id"])
}

func TestWebSocketController_RequiresUser(t *testing.T) {
	_, server := setupWebSocketControllerTest(t)

	resp, err := http.Get(server.URL + "/ws/outfits")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
