package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
)

// maskVisibleSuffix is how many trailing key characters stay readable.
const maskVisibleSuffix = 4

// SettingsHandler manages stored provider API keys.
type SettingsHandler struct {
	logger   *observability.Logger
	settings *storage.SettingsRepository
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(logger *observability.Logger, db storage.DB) *SettingsHandler {
	return &SettingsHandler{logger: logger, settings: storage.NewSettingsRepository(db)}
}

// keysPayload is the request and response shape for the keys endpoint.
// Responses carry masked values; requests carry full keys.
type keysPayload struct {
	AnthropicAPIKey string `json:"anthropic_api_key"`
	GoogleAPIKey    string `json:"google_api_key"`
}

// GetKeys handles GET /api/settings/keys. Keys are masked so the
// frontend can show whether one is configured without exposing it.
func (h *SettingsHandler) GetKeys(w http.ResponseWriter, r *http.Request) {
	anthropicKey, err := h.load(r, storage.SettingAnthropicAPIKey)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	googleKey, err := h.load(r, storage.SettingGoogleAPIKey)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, keysPayload{
		AnthropicAPIKey: maskKey(anthropicKey),
		GoogleAPIKey:    maskKey(googleKey),
	})
}

// PutKeys handles PUT /api/settings/keys. Empty fields leave the stored
// value untouched.
func (h *SettingsHandler) PutKeys(w http.ResponseWriter, r *http.Request) {
	var payload keysPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	updates := map[string]string{
		storage.SettingAnthropicAPIKey: strings.TrimSpace(payload.AnthropicAPIKey),
		storage.SettingGoogleAPIKey:    strings.TrimSpace(payload.GoogleAPIKey),
	}
	for key, value := range updates {
		if value == "" {
			continue
		}
		if err := h.settings.Put(r.Context(), key, value); err != nil {
			h.logger.Error().Str("key", key).Err(err).Msg("Failed to store setting")
			writeError(w, http.StatusInternalServerError, "failed to store settings")
			return
		}
	}

	h.GetKeys(w, r)
}

func (h *SettingsHandler) load(r *http.Request, key string) (string, error) {
	value, err := h.settings.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return value, err
}

// maskKey hides all but the last characters of a stored key. Keys too
// short to mask meaningfully are not revealed at all.
func maskKey(key string) string {
	if len(key) < 2*maskVisibleSuffix {
		return ""
	}
	return strings.Repeat("*", len(key)-maskVisibleSuffix) + key[len(key)-maskVisibleSuffix:]
}
