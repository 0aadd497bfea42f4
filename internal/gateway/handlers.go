package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/simonsays-lab/scoreboard/internal/leaderboard"
	"github.com/simonsays-lab/scoreboard/internal/session"
)

// Handler exposes the REST surface: the browser's start/leaderboard
// endpoints and the device's poll/submit endpoints. Paths and JSON
// shapes match what the device firmware and frontend already speak.
type Handler struct {
	coordinator *session.Coordinator
	store       leaderboard.Store
}

// NewHandler creates the REST handler.
func NewHandler(coordinator *session.Coordinator, store leaderboard.Store) *Handler {
	return &Handler{
		coordinator: coordinator,
		store:       store,
	}
}

type startGameRequest struct {
	PlayerName string `json:"playerName"`
}

type submitScoreRequest struct {
	Name            string `json:"name"`
	Score           *int   `json:"score"`
	TotalDuration   int    `json:"totalDuration"`
	AvgResponseTime int    `json:"avgResponseTime"`
	TimeBonus       int    `json:"timeBonus"`
	AccuracyBonus   int    `json:"accuracyBonus"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleStartGame claims the session for a player (POST /start-game).
func (h *Handler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	claim, err := h.coordinator.StartGame(r.Context(), req.PlayerName)
	if err != nil {
		switch {
		case errors.Is(err, leaderboard.ErrInvalidPlayer):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Player name is required"})
		case errors.Is(err, session.ErrSessionBusy):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "A game is already in progress"})
		default:
			log.Error().Err(err).Msg("start game failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error while triggering game"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Game triggered successfully",
		"playerName": claim.Player,
	})
}

// HandleCheckGameTrigger is the device poll (GET /check-game-trigger).
// The trigger stays available to every poll inside its visibility
// window so a missed response is recoverable on the next poll.
func (h *Handler) HandleCheckGameTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	deviceID := r.Header.Get("device-id")
	claim, active := h.coordinator.PollClaim(deviceID)
	if !active {
		writeJSON(w, http.StatusOK, map[string]any{"startGame": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"startGame":  true,
		"playerName": claim.Player,
	})
}

// HandleSubmitScore records a completed game (POST /submit-score).
func (h *Handler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Score == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Score is required and must be a non-negative number"})
		return
	}

	result, err := h.coordinator.ConfirmScore(r.Context(), req.Name, *req.Score, session.ScoreExtras{
		TotalDurationMs:   req.TotalDuration,
		AvgResponseTimeMs: req.AvgResponseTime,
		TimeBonus:         req.TimeBonus,
		AccuracyBonus:     req.AccuracyBonus,
	})
	if err != nil {
		switch {
		case errors.Is(err, leaderboard.ErrInvalidPlayer):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Name is required and must be a non-empty string"})
		case errors.Is(err, leaderboard.ErrInvalidScore):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Score is required and must be a non-negative number"})
		case errors.Is(err, session.ErrNoActiveClaim):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "No active game claim"})
		case errors.Is(err, session.ErrPlayerMismatch):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "Score does not match the active game"})
		default:
			log.Error().Err(err).Msg("score submission failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error while processing score"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Score submitted successfully",
		"playerName":   result.Entry.Player,
		"score":        result.Entry.Score,
		"position":     result.Position,
		"totalPlayers": result.TotalPlayers,
	})
}

// HandleLeaderboard returns the ranked leaderboard as a JSON array
// (GET /api/leaderboard).
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	entries, err := h.store.ReadAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("leaderboard fetch failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error while fetching leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, leaderboard.Rank(entries))
}

// HandleGameStatus reports the current claim (GET /api/game-status).
func (h *Handler) HandleGameStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	status := h.coordinator.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"isGameActive":  status.Active,
		"currentPlayer": status.Player,
		"triggeredAt":   status.TriggeredAt,
	})
}

// HandleResetTrigger administratively clears the claim
// (POST /reset-trigger).
func (h *Handler) HandleResetTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	h.coordinator.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Trigger reset successfully",
	})
}

// RegisterRoutes registers the REST routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/start-game", h.HandleStartGame)
	mux.HandleFunc("/check-game-trigger", h.HandleCheckGameTrigger)
	mux.HandleFunc("/submit-score", h.HandleSubmitScore)
	mux.HandleFunc("/api/leaderboard", h.HandleLeaderboard)
	mux.HandleFunc("/api/game-status", h.HandleGameStatus)
	mux.HandleFunc("/reset-trigger", h.HandleResetTrigger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}
