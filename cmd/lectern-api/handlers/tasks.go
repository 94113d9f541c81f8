package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/tasks"
)

// TaskHandler serves task status and finished artifacts.
type TaskHandler struct {
	logger *observability.Logger
	store  tasks.Store
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(logger *observability.Logger, store tasks.Store) *TaskHandler {
	return &TaskHandler{logger: logger, store: store}
}

// Get handles GET /api/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, tasks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load task")
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tasks")
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": list})
}

// Download handles GET /api/tasks/{taskID}/download/{kind} where kind
// is pptx or docx. Artifacts are only available once the task has
// completed.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, tasks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load task")
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	if task.Status != domain.TaskStatusCompleted {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("task is %s, artifacts are not ready", task.Status))
		return
	}

	var path, contentType string
	switch chi.URLParam(r, "kind") {
	case "pptx":
		path = task.PPTXPath
		contentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "docx":
		path = task.DOCXPath
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		writeError(w, http.StatusBadRequest, "download kind must be pptx or docx")
		return
	}

	if path == "" {
		writeError(w, http.StatusNotFound, "artifact not available")
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Warn().Str("path", path).Err(err).Msg("Artifact file missing")
		writeError(w, http.StatusNotFound, "artifact file no longer exists")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
