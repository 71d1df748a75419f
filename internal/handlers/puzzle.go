package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"reunion-countdown/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PuzzleHandler handles photo-order puzzle HTTP requests
type PuzzleHandler struct {
	puzzleService *services.PuzzleService
}

// NewPuzzleHandler creates a new puzzle handler
func NewPuzzleHandler(puzzleService *services.PuzzleService) *PuzzleHandler {
	return &PuzzleHandler{
		puzzleService: puzzleService,
	}
}

// MoveRequest represents one drag-and-drop move
type MoveRequest struct {
	MovedID  string `json:"moved_id"`
	BeforeID string `json:"before_id"`
}

// CheckResponse is the verdict on the current order
type CheckResponse struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// CreateRound handles POST /api/v1/puzzle/rounds
func (h *PuzzleHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.puzzleService.NewRound(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to create photo round")
		respondError(w, "Failed to create photo round", http.StatusInternalServerError)
		return
	}

	log.Info().Str("round_id", round.ID).Msg("Photo round created")
	respondJSON(w, http.StatusCreated, round)
}

// GetRound handles GET /api/v1/puzzle/rounds/{round_id}
func (h *PuzzleHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.puzzleService.Round(chi.URLParam(r, "round_id"))
	if err != nil {
		h.respondRoundError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, round)
}

// ShuffleRound handles POST /api/v1/puzzle/rounds/{round_id}/shuffle
func (h *PuzzleHandler) ShuffleRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.puzzleService.Shuffle(r.Context(), chi.URLParam(r, "round_id"))
	if err != nil {
		h.respondRoundError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, round)
}

// MovePhoto handles POST /api/v1/puzzle/rounds/{round_id}/moves
func (h *PuzzleHandler) MovePhoto(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	round, err := h.puzzleService.Move(chi.URLParam(r, "round_id"), req.MovedID, req.BeforeID)
	if err != nil {
		h.respondRoundError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, round)
}

// CheckRound handles POST /api/v1/puzzle/rounds/{round_id}/check
func (h *PuzzleHandler) CheckRound(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "round_id")

	correct, err := h.puzzleService.Check(roundID)
	if err != nil {
		h.respondRoundError(w, err)
		return
	}

	log.Info().Str("round_id", roundID).Bool("correct", correct).Msg("Photo order checked")
	respondJSON(w, http.StatusOK, CheckResponse{Correct: correct, Message: checkMessage(correct)})
}

func (h *PuzzleHandler) respondRoundError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrRoundNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg("Photo round request failed")
	respondError(w, "Photo round request failed", http.StatusInternalServerError)
}
