package server

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	historyDefaultLimit = 50
	historyMaxLimit     = 200
)

type historyResponse struct {
	Count   int   `json:"count"`
	Limit   int   `json:"limit"`
	Records []any `json:"records"`
}

// handleHistory lists the newest audit records. There is deliberately no
// cursor: limit means "first N after sorting newest-first".
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.authorizer.RequireAdmin(r.Context(), r.Header.Get("X-Admin-Token"), r.Header.Get("Authorization")); err != nil {
		s.writeAuthError(w, err)
		return
	}

	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > historyMaxLimit {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 1 and %d", historyMaxLimit))
			return
		}
		limit = v
	}

	if s.store == nil {
		detail := "blob storage is not configured"
		if s.storeInitErr != "" {
			detail = s.storeInitErr
		}
		writeDetail(w, http.StatusServiceUnavailable, detail)
		return
	}

	names, err := s.store.ListRecordNames(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("history listing failed")
		writeDetail(w, http.StatusServiceUnavailable, fmt.Sprintf("list history: %v", err))
		return
	}

	records := make([]any, 0, len(names))
	for _, name := range names {
		record, err := s.store.GetRecord(r.Context(), name)
		if err != nil {
			// One unreadable record must not abort the whole listing.
			s.logger.Warn().Err(err).Str("history_blob_name", name).Msg("skipping unreadable record")
			records = append(records, map[string]any{
				"history_blob_name": name,
				"error":             err.Error(),
			})
			continue
		}
		records = append(records, record)
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Count:   len(records),
		Limit:   limit,
		Records: records,
	})
}
