package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"reunion-countdown/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the widget is served from the same local machine
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub           *services.WSHub
	countdown     *services.CountdownService
	puzzleService *services.PuzzleService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	countdown *services.CountdownService,
	puzzleService *services.PuzzleService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		countdown:     countdown,
		puzzleService: puzzleService,
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	clientID := h.hub.Register(conn)
	defer h.hub.Unregister(clientID)

	ctx := r.Context()

	// Current state right away, without waiting for the next tick
	if err := h.hub.SendToClient(clientID, services.WSMessage{
		Type: services.MsgTick,
		Data: Present(h.countdown.Snapshot()),
	}); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to send initial snapshot")
		return
	}

	round, err := h.puzzleService.NewRound(ctx)
	if err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to create photo round")
		return
	}
	defer h.puzzleService.Discard(round.ID)

	if err := h.hub.SendToClient(clientID, services.WSMessage{
		Type:    services.MsgRound,
		RoundID: round.ID,
		Data:    round,
	}); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to send photo round")
		return
	}

	log.Info().Str("client_id", clientID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("client_id", clientID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("Failed to parse WebSocket message")
			h.sendError(clientID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, clientID, round.ID, msg); err != nil {
			log.Error().Err(err).Str("client_id", clientID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(clientID, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages for the connection's own round
func (h *WebSocketHandler) handleMessage(ctx context.Context, clientID, roundID string, msg services.WSMessage) error {
	switch msg.Type {
	case services.MsgShuffle:
		round, err := h.puzzleService.Shuffle(ctx, roundID)
		if err != nil {
			return err
		}
		return h.hub.SendToClient(clientID, services.WSMessage{Type: services.MsgRound, RoundID: roundID, Data: round})

	case services.MsgReorder:
		round, err := h.puzzleService.Move(roundID, msg.MovedID, msg.BeforeID)
		if err != nil {
			return err
		}
		return h.hub.SendToClient(clientID, services.WSMessage{Type: services.MsgRound, RoundID: roundID, Data: round})

	case services.MsgCheck:
		correct, err := h.puzzleService.Check(roundID)
		if err != nil {
			return err
		}
		return h.hub.SendToClient(clientID, services.WSMessage{
			Type:    services.MsgCheckResult,
			RoundID: roundID,
			Correct: &correct,
			Message: checkMessage(correct),
		})

	default:
		h.sendError(clientID, "Unknown message type")
		return nil
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(clientID, message string) {
	if err := h.hub.SendToClient(clientID, services.WSMessage{
		Type:    services.MsgError,
		Message: message,
	}); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to send error message")
	}
}
