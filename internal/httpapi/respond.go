// ABOUTME: JSON response and error helpers for the HTTP API
// ABOUTME: Maps domain sentinel errors onto the HTTP status taxonomy

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kioskgate/kioskgate/internal/auth"
	"github.com/kioskgate/kioskgate/internal/provision"
	"github.com/kioskgate/kioskgate/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeError translates a domain error into an HTTP response. Unrecognized
// errors become an opaque 500; the detail goes to the log, not the wire.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, provision.ErrDeviceNotActive):
		s.sendJSONError(w, http.StatusForbidden, "device is not active")
	case errors.Is(err, store.ErrCredentialIssued):
		s.sendJSONError(w, http.StatusConflict, "credential already issued")
	case errors.Is(err, store.ErrInvalidState):
		s.sendJSONError(w, http.StatusConflict, "invalid device state for this operation")
	case errors.Is(err, store.ErrDeviceNotFound):
		s.sendJSONError(w, http.StatusNotFound, "device not found")
	case errors.Is(err, store.ErrUserNotFound):
		s.sendJSONError(w, http.StatusNotFound, "user not found")
	default:
		s.logger.Error("request failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a request body, rejecting unknown garbage early.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
