package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
)

// UsageHandler serves the cost ledger reports.
type UsageHandler struct {
	logger   *observability.Logger
	reporter *ledger.Reporter
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(logger *observability.Logger, reporter *ledger.Reporter) *UsageHandler {
	return &UsageHandler{logger: logger, reporter: reporter}
}

// Global handles GET /api/usage.
func (h *UsageHandler) Global(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporter.GlobalStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build usage stats")
		writeError(w, http.StatusInternalServerError, "failed to build usage stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Session handles GET /api/usage/{sessionID}.
func (h *UsageHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	stats, err := h.reporter.SessionStats(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build session stats")
		writeError(w, http.StatusInternalServerError, "failed to build session stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UserHandler serves user records and histories.
type UserHandler struct {
	logger   *observability.Logger
	reporter *ledger.Reporter
	users    *storage.UserRepository
}

// NewUserHandler creates a new user handler.
func NewUserHandler(logger *observability.Logger, reporter *ledger.Reporter, db storage.DB) *UserHandler {
	return &UserHandler{
		logger:   logger,
		reporter: reporter,
		users:    storage.NewUserRepository(db),
	}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list users")
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Get handles GET /api/users/{userName}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporter.UserStats(r.Context(), chi.URLParam(r, "userName"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build user stats")
		writeError(w, http.StatusInternalServerError, "failed to build user stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PresentationHandler serves the presentation history.
type PresentationHandler struct {
	logger        *observability.Logger
	presentations *storage.PresentationRepository
}

// NewPresentationHandler creates a new presentation handler.
func NewPresentationHandler(logger *observability.Logger, db storage.DB) *PresentationHandler {
	return &PresentationHandler{
		logger:        logger,
		presentations: storage.NewPresentationRepository(db),
	}
}

// List handles GET /api/presentations.
func (h *PresentationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.presentations.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list presentations")
		writeError(w, http.StatusInternalServerError, "failed to list presentations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presentations": list})
}
