package exporter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/amplifi-exporter/internal/poller"
)

// StatusProvider reports the poller status. *poller.Scheduler implements it.
type StatusProvider interface {
	Status() poller.Status
}

// Handler routes the exporter's HTTP endpoints.
type Handler struct {
	status StatusProvider
	mux    *http.ServeMux
}

// New creates a Handler serving g on /metrics and sp on /api/v1/health.
func New(g prometheus.Gatherer, sp StatusProvider) http.Handler {
	h := &Handler{status: sp, mux: http.NewServeMux()}

	h.mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	}))
	h.mux.HandleFunc("/api/v1/health", h.health)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health. A scheduler in backoff answers 503.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := toHealthResponse(h.status.Status())
	code := http.StatusOK
	if resp.Status == "backoff" {
		code = http.StatusServiceUnavailable
	}
	jsonResp(w, code, resp)
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
