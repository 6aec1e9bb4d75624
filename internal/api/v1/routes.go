// Package v1 provides the admin REST API for conflict tickets, sync
// attempts and full resyncs.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ehving/noticesystem-sub000/internal/api/common"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	maxSweepLimit   = 1000
)

// Routes holds the services behind the admin API.
type Routes struct {
	conflicts ConflictService
	detector  BatchDetector
	attempts  AttemptService
	resyncer  Resyncer
}

// NewRoutes creates a new Routes instance. A nil detector disables
// POST /conflicts/detect.
func NewRoutes(conflicts ConflictService, detector BatchDetector, attempts AttemptService, resyncer Resyncer) *Routes {
	return &Routes{
		conflicts: conflicts,
		detector:  detector,
		attempts:  attempts,
		resyncer:  resyncer,
	}
}

// Router creates the router for the admin API.
func Router(routes *Routes) http.Handler {
	r := chi.NewRouter()

	r.Route("/conflicts", func(r chi.Router) {
		r.Get("/", routes.listConflicts)
		r.Post("/recheck-open", routes.recheckOpen)
		r.Post("/notify-pending", routes.notifyPending)
		r.Post("/detect", routes.detect)
		r.Get("/{id}", routes.getConflict)
		r.Post("/{id}/resolve", routes.resolveConflict)
		r.Post("/{id}/ignore", routes.ignoreConflict)
		r.Post("/{id}/reopen", routes.reopenConflict)
		r.Post("/{id}/recheck", routes.recheckConflict)
	})

	r.Route("/attempts", func(r chi.Router) {
		r.Get("/", routes.listAttempts)
		r.Get("/stats/daily", routes.dailyStats)
		r.Post("/retry-failed", routes.retryFailed)
		r.Post("/clean", routes.cleanAttempts)
		r.Get("/{id}", routes.getAttempt)
		r.Post("/{id}/retry", routes.retryAttempt)
	})

	r.Post("/resync", routes.resync)

	return r
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conflict.ErrTicketNotFound), errors.Is(err, attempt.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, conflict.ErrInvalidRequest), errors.Is(err, sync.ErrInvalidSync):
		return http.StatusBadRequest
	case errors.Is(err, sync.ErrResyncInProgress), errors.Is(err, conflict.ErrRepairIncomplete),
		errors.Is(err, attempt.ErrTerminalAttempt):
		return http.StatusConflict
	case errors.Is(err, conflict.ErrNoAttemptSource):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err. Server-side failures are logged and reported
// without their internals.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
		common.WriteErrorResponse(w, msg, status)
		return
	}
	common.WriteErrorResponse(w, err.Error(), status)
}

func badRequest(w http.ResponseWriter, err error) {
	common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
}
