package sink

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	analytics "github.com/devshare/analytics-go"
)

// maxBatchBody bounds the size of an accepted batch request.
const maxBatchBody = 5 << 20

// Handler serves the collector endpoints.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler creates a handler storing into store. A nil logger discards
// output.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{store: store, logger: logger}
}

// Router returns the collector routes:
//
//	POST /v1/analytics/events/batch
//	GET  /v1/analytics/events?limit=N
//	GET  /healthz
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post(analytics.BatchPath, h.ingest)
	r.Get("/v1/analytics/events", h.recent)
	r.Get("/healthz", h.health)
	return r
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var payload analytics.BatchPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody))
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(payload.Events) == 0 {
		writeError(w, http.StatusBadRequest, "events must not be empty")
		return
	}

	if err := h.store.Insert(r.Context(), payload.Events, clientIP(r)); err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to store batch", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to store events")
		return
	}

	h.logger.Info("batch stored", "events", len(payload.Events), "app_id", payload.Events[0].AppID)
	writeJSON(w, http.StatusOK, analytics.BatchResponse{Accepted: len(payload.Events)})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	out := make([]analytics.WireEvent, len(events))
	for i, e := range events {
		out[i] = e.WireEvent
	}
	writeJSON(w, http.StatusOK, analytics.BatchPayload{Events: out})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "events": n})
}

// clientIP returns the host part of the request's remote address, which
// RealIP has already replaced with a forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
