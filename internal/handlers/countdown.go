package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"reunion-countdown/internal/middleware"
	"reunion-countdown/internal/models"
	"reunion-countdown/internal/services"

	"github.com/rs/zerolog/log"
)

// CountdownHandler handles countdown-related HTTP requests
type CountdownHandler struct {
	countdown *services.CountdownService
	timeStore *services.TimeStore
	gate      *services.AccessGate
	wsHub     *services.WSHub
}

// NewCountdownHandler creates a new countdown handler
func NewCountdownHandler(
	countdown *services.CountdownService,
	timeStore *services.TimeStore,
	gate *services.AccessGate,
	wsHub *services.WSHub,
) *CountdownHandler {
	return &CountdownHandler{
		countdown: countdown,
		timeStore: timeStore,
		gate:      gate,
		wsHub:     wsHub,
	}
}

// SaveTargetRequest represents the request body for saving a new target
type SaveTargetRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// SaveTargetResponse is returned after a successful save
type SaveTargetResponse struct {
	Message  string                `json:"message"`
	Target   *models.TargetInstant `json:"target"`
	Snapshot models.Snapshot       `json:"snapshot"`
}

// TargetResponse describes the saved target and the edit form
type TargetResponse struct {
	Target    *models.TargetInstant `json:"target"`
	Form      models.TargetForm     `json:"form"`
	SecretSet bool                  `json:"secret_set"`
}

// GetCountdown handles GET /api/v1/countdown
func (h *CountdownHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Present(h.countdown.Snapshot()))
}

// GetTarget handles GET /api/v1/countdown/target
func (h *CountdownHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := h.timeStore.Form(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load target form")
		respondError(w, "Failed to load target", http.StatusInternalServerError)
		return
	}

	state, err := h.gate.State(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read gate state")
		respondError(w, "Failed to load target", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, TargetResponse{
		Target:    h.countdown.Target(),
		Form:      form,
		SecretSet: state == services.SecretSet,
	})
}

// SaveTarget handles PUT /api/v1/countdown/target
func (h *CountdownHandler) SaveTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.countdown.Save(ctx, middleware.Prompter(ctx), req.Date, req.Time, req.Timezone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingDate):
			respondError(w, msgMissingDate, http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidDate),
			errors.Is(err, services.ErrInvalidTime),
			errors.Is(err, services.ErrInvalidOffset),
			errors.Is(err, services.ErrUnsupportedOffset):
			respondError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error().Err(err).Msg("Failed to save countdown target")
			respondError(w, "Failed to save countdown target", http.StatusInternalServerError)
		}
		return
	}

	if !result.Decision.Granted {
		respondJSON(w, rejectStatus(result.Decision.Reason), ErrorResponse{
			Error:  rejectMessages[result.Decision.Reason],
			Reason: string(result.Decision.Reason),
		})
		return
	}

	snap := Present(h.countdown.Snapshot())
	h.wsHub.Broadcast(services.WSMessage{
		Type:    services.MsgSaved,
		Message: msgSaved,
		Data:    snap,
	})

	respondJSON(w, http.StatusOK, SaveTargetResponse{
		Message:  msgSaved,
		Target:   result.Target,
		Snapshot: snap,
	})
}

// GetTimezones handles GET /api/v1/timezones
func (h *CountdownHandler) GetTimezones(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"timezones": h.timeStore.Timezones(),
		"default":   h.timeStore.DefaultTimezone(),
	})
}

func rejectStatus(reason services.RejectReason) int {
	switch reason {
	case services.ReasonCancelled:
		return http.StatusUnauthorized
	case services.ReasonWrong:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
