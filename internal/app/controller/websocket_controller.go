package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/stylhelpr/stylhelpr-backend/internal/errors"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
	ws "github.com/stylhelpr/stylhelpr-backend/internal/websocket"
)

const clientSendBuffer = 256

type WebSocketController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketController allows upgrades from allowedOrigins; "*" or an
// empty list accepts any origin.
func NewWebSocketController(hub *ws.Hub, allowedOrigins []string) *WebSocketController {
	allowed := make(map[string]bool, len(allowedOrigins))
	anyOrigin := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = true
	}

	return &WebSocketController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// native clients send no Origin
				return anyOrigin || origin == "" || allowed[origin]
			},
		},
	}
}

// OutfitEvents upgrades to a websocket receiving the user's outfit events
// GET /ws/outfits?user_id=
func (ctrl *WebSocketController) OutfitEvents(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, authenticated := middleware.GetUserID(c)
	if requested := c.Query("user_id"); requested != "" {
		if authenticated && requested != userID {
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only subscribe to your own outfits")
			return
		}
		userID = requested
	}
	if userID == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "user_id is required")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := &ws.Client{
		Hub:           ctrl.hub,
		Conn:          &ws.Conn{Conn: conn},
		UserID:        userID,
		Send:          make(chan []byte, clientSendBuffer),
		LastResetTime: time.Now(),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
