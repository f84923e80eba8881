package api

import (
	"net/http"

	"github.com/lorebot/lore/internal/log"
)

// ReadinessChecker reports whether the knowledge base can serve queries.
// The vector store satisfies it with its chunk count.
type ReadinessChecker interface {
	Count() int
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	ready  ReadinessChecker
	logger log.Logger
}

// NewHealthHandler creates a health handler. ready may be nil, in which
// case readiness always fails.
func NewHealthHandler(ready ReadinessChecker, logger log.Logger) *HealthHandler {
	return &HealthHandler{ready: ready, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness answers 200 only when the index has content; an empty or
// missing index means every question would hit the fallback path.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.ready == nil || h.ready.Count() == 0 {
		http.Error(w, "knowledge base is empty; run reindex", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
