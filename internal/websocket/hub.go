package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
)

// Outfit event types pushed to clients.
const (
	EventOutfitCreated = "outfit.created"
	EventOutfitUpdated = "outfit.updated"
	EventOutfitDeleted = "outfit.deleted"
)

// ClientMessage is an inbound frame. Only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// OutfitEvent is the payload sent to every session of the outfit's owner.
type OutfitEvent struct {
	Type     string              `json:"type"`
	OutfitID string              `json:"outfit_id"`
	Outfit   *model.CustomOutfit `json:"outfit,omitempty"`
	SentAt   time.Time           `json:"sent_at"`
}

// Client is one websocket session.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        string
	Send          chan []byte
	MessageCount  int       // frames received in the current one-second window
	LastResetTime time.Time // start of that window
	RateMu        sync.Mutex
}

// Hub tracks sessions per user (multi-device) and fans messages out to them.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{} // closed when Run returns

	mu sync.RWMutex
}

// BroadcastMessage is a pre-encoded frame addressed to one user, or to a
// single session of that user when Client is set.
type BroadcastMessage struct {
	UserID  string
	Client  *Client
	Message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clientList := h.clients[message.UserID]
			for _, client := range clientList {
				if message.Client != nil && message.Client != client {
					continue
				}
				select {
				case client.Send <- message.Message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": message.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	clientList, ok := h.clients[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}

	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if len(newList) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = newList
	}
	if found {
		close(client.Send)
	}
	h.mu.Unlock()

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(newList),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clientList := range h.clients {
		for _, c := range clientList {
			close(c.Send)
		}
		delete(h.clients, userID)
	}
}

// SendToUser queues message for every session of userID. A full broadcast
// queue drops the message.
func (h *Hub) SendToUser(userID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{UserID: userID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"user_id": userID,
		})
	}
	return nil
}

// PublishOutfitEvent notifies the owner's sessions about an outfit change.
func (h *Hub) PublishOutfitEvent(userID, eventType string, outfit *model.CustomOutfit) {
	event := OutfitEvent{Type: eventType, SentAt: time.Now().UTC()}
	if outfit != nil {
		event.OutfitID = outfit.ID
		if eventType != EventOutfitDeleted {
			event.Outfit = outfit
		}
	}

	if err := h.SendToUser(userID, event); err != nil {
		logger.Error("Failed to publish outfit event", err, map[string]interface{}{
			"user_id": userID,
			"type":    eventType,
		})
	}
}

// Register adds client to the hub. Once the hub has stopped the client's
// Send channel is closed instead so its pumps exit.
func (h *Hub) Register(client *Client) {
	select {
	case <-h.done:
		close(client.Send)
		return
	default:
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes client. It returns immediately once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SessionCount returns the number of open sessions for userID.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// HandleClientMessage applies the per-client rate limit and answers pings.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		pong, _ := json.Marshal(map[string]interface{}{
			"type":    "pong",
			"sent_at": now.UTC(),
		})
		select {
		case h.broadcast <- &BroadcastMessage{UserID: client.UserID, Client: client, Message: pong}:
		default:
		}
	}
}
