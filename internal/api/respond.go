package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

func nullIfEmpty(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

// respondError writes the {message} error body shared by all failure paths.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// serverError hides the failure detail from the caller and logs it instead.
func (h *Handler) serverError(w http.ResponseWriter, err error, message string) {
	h.log.Error().Err(err).Msg(message)
	respondError(w, http.StatusInternalServerError, message)
}
