package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/worker"
)

const errCodeQueueFull = "QUEUE_FULL"

type playRoundRequest struct {
	GameState string `json:"game_state"`
}

type queuedResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	Entries   domain.History `json:"entries"`
}

// PlayRound handles POST /sessions/{id}/rounds
func (h *Handler) PlayRound(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	sessionID := r.PathValue("id")

	var req playRoundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GameState == "" {
		writeError(w, http.StatusBadRequest, domain.ErrEmptyGameState.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.queueRound(w, sessionID, req.GameState)
		return
	}

	round, err := h.svc.Play(r.Context(), sessionID, req.GameState)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/rounds/"+round.ID)
	writeJSON(w, http.StatusCreated, round)
}

func (h *Handler) queueRound(w http.ResponseWriter, sessionID, gameState string) {
	if h.pool == nil {
		writeError(w, http.StatusNotImplemented, "async rounds not configured")
		return
	}
	if !h.pool.Submit(worker.Job{SessionID: sessionID, GameState: gameState}) {
		writeErrorWithCode(w, http.StatusServiceUnavailable, "round queue is full", errCodeQueueFull)
		return
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{SessionID: sessionID, Status: "queued"})
}

// GetHistory handles GET /sessions/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	history, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Entries: history})
}

// GetRound handles GET /rounds/{id}
func (h *Handler) GetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.Round(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyGameState), errors.Is(err, domain.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("rest: request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
