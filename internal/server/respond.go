package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aphidlab/inference-gateway/internal/auth"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// writeAuthError maps switchboard failures onto the wire: auth errors
// carry their own status, config errors are 503 because the caller did
// nothing wrong.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		s.metrics.authDenials.WithLabelValues(string(authErr.Code)).Inc()
		writeDetail(w, authErr.Status(), authErr.Error())
		return
	}
	var cfgErr *auth.ConfigError
	if errors.As(err, &cfgErr) {
		s.logger.Error().Err(err).Msg("admin auth misconfigured")
		writeDetail(w, http.StatusServiceUnavailable, cfgErr.Error())
		return
	}
	s.logger.Error().Err(err).Msg("admin auth failed unexpectedly")
	writeDetail(w, http.StatusInternalServerError, "internal error")
}
