package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/upkeep/internal/application"
	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the status API.
type Handler struct {
	checks *application.CheckService
	logger *slog.Logger
}

// NewHandler creates a Handler over the check service.
func NewHandler(checks *application.CheckService, logger *slog.Logger) *Handler {
	return &Handler{checks: checks, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/changelog", h.Changelog)
	mux.HandleFunc("GET /api/v1/dismissals", h.ListDismissals)
	mux.HandleFunc("POST /api/v1/dismiss/{version}", h.Dismiss)
	mux.HandleFunc("DELETE /api/v1/dismissals/{version}", h.ClearDismissal)
	mux.HandleFunc("DELETE /api/v1/dismissals", h.ClearAllDismissals)
	mux.HandleFunc("POST /api/v1/cache/clear", h.ClearCache)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Status runs an update check and returns the report. The refresh=true query
// parameter bypasses the cache TTL.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	rep := h.checks.Check(r.Context(), refresh)
	writeJSON(w, http.StatusOK, toStatusResponse(rep))
}

// Changelog serves the latest release's changelog rendered as sanitized HTML.
func (h *Handler) Changelog(w http.ResponseWriter, r *http.Request) {
	rep := h.checks.Check(r.Context(), false)
	if rep.Latest == nil {
		writeError(w, http.StatusNotFound, "no release information available")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RenderMarkdown(rep.Latest.Changelog)))
}

// Dismiss records a dismissal for the version named in the path.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	version, err := model.ParseVersion(r.PathValue("version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version")
		return
	}

	record, err := h.checks.Dismiss(r.Context(), version)
	if err != nil {
		h.logger.Error("failed to dismiss version", "version", version, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDismissalResponse(record))
}

// ClearDismissal removes the dismissal record for one version.
func (h *Handler) ClearDismissal(w http.ResponseWriter, r *http.Request) {
	version, err := model.ParseVersion(r.PathValue("version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version")
		return
	}

	if err := h.checks.ClearDismissal(r.Context(), version); err != nil {
		h.logger.Error("failed to clear dismissal", "version", version, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearAllDismissals removes every dismissal record.
func (h *Handler) ClearAllDismissals(w http.ResponseWriter, r *http.Request) {
	if err := h.checks.ClearAllDismissals(r.Context()); err != nil {
		h.logger.Error("failed to clear dismissals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDismissals returns all dismissal records ordered by version.
func (h *Handler) ListDismissals(w http.ResponseWriter, r *http.Request) {
	dismissals, err := h.checks.ListDismissals(r.Context())
	if err != nil {
		h.logger.Error("failed to list dismissals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DismissalResponse, 0, len(dismissals))
	for _, d := range dismissals {
		resp = append(resp, toDismissalResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ClearCache drops the cached release so the next check hits the source.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.checks.ClearCache(r.Context()); err != nil {
		h.logger.Error("failed to clear release cache", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
