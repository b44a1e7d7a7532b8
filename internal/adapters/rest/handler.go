package rest

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/core/services"
	"github.com/Victoriakaey/troubador2/internal/logging"
	"github.com/Victoriakaey/troubador2/internal/worker"
)

const maxBodyBytes = 1 << 20

// Handler manages the HTTP interface for the engine.
type Handler struct {
	svc      *services.Orchestrator
	tools    ports.ToolSet
	pool     *worker.Pool
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   *http.ServeMux
}

// NewHandler initializes the HTTP adapter and sets up routes. pool and
// gatherer may be nil; async rounds and /metrics are then unavailable.
func NewHandler(svc *services.Orchestrator, tools ports.ToolSet, pool *worker.Pool, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	h := &Handler{
		svc:      svc,
		tools:    tools,
		pool:     pool,
		gatherer: gatherer,
		logger:   logging.OrDiscard(logger),
		router:   http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	h.router.HandleFunc("POST /sessions/{id}/rounds", h.PlayRound)
	h.router.HandleFunc("GET /sessions/{id}/history", h.GetHistory)
	h.router.HandleFunc("GET /rounds/{id}", h.GetRound)

	h.router.HandleFunc("POST /tools/{name}", h.CallTool)

	if h.gatherer != nil {
		h.router.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Troubador is live"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
