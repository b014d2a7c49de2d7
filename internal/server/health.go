package server

import "net/http"

type healthResponse struct {
	Status           string `json:"status"`
	AuthMode         string `json:"auth_mode"`
	AdminEnabled     bool   `json:"admin_enabled"`
	StorageReady     bool   `json:"storage_ready"`
	StorageInitError string `json:"storage_init_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		AuthMode:         s.authMode,
		AdminEnabled:     s.adminEnabled,
		StorageReady:     s.store != nil,
		StorageInitError: s.storeInitErr,
	})
}
