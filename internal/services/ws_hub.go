package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket message types
const (
	MsgTick        = "tick"
	MsgArrived     = "arrived"
	MsgSaved       = "saved"
	MsgRound       = "round"
	MsgCheckResult = "check_result"
	MsgError       = "error"

	MsgShuffle = "shuffle"
	MsgReorder = "reorder"
	MsgCheck   = "check"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type     string      `json:"type"`
	RoundID  string      `json:"round_id,omitempty"`
	MovedID  string      `json:"moved_id,omitempty"`
	BeforeID string      `json:"before_id,omitempty"`
	Correct  *bool       `json:"correct,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// wsClient serializes writes to one connection
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections of the open widgets
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection and returns its client id
func (h *WSHub) Register(conn *websocket.Conn) string {
	clientID := uuid.New().String()

	h.mu.Lock()
	h.connections[clientID] = &wsClient{conn: conn}
	h.mu.Unlock()

	log.Info().Str("client_id", clientID).Msg("WebSocket connection registered")
	return clientID
}

// Unregister removes a WebSocket connection
func (h *WSHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[clientID]; exists {
		c.conn.Close()
		delete(h.connections, clientID)
		log.Info().Str("client_id", clientID).Msg("WebSocket connection unregistered")
	}
}

// SendToClient sends a message to a specific connection
func (h *WSHub) SendToClient(clientID string, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[clientID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("client %s is not connected", clientID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(clientID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Broadcast sends a message to every connection; failed connections are dropped
func (h *WSHub) Broadcast(message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	clients := make(map[string]*wsClient, len(h.connections))
	for id, c := range h.connections {
		clients[id] = c
	}
	h.mu.RUnlock()

	for id, c := range clients {
		if err := c.write(data); err != nil {
			log.Error().Err(err).Str("client_id", id).Str("type", message.Type).Msg("Failed to broadcast message")
			h.Unregister(id)
		}
	}
}

// Count returns the number of open connections
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
