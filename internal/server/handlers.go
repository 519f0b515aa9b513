package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDecide runs the strategy engine for one SKU
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		s.respondError(w, http.StatusBadRequest, "sku is required")
		return
	}

	decision, err := s.strategy.Decide(sku)
	if err != nil {
		s.log.Error().Err(err).Str("sku", sku).Msg("Decision failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, decision)
}

// handleExecutionRun triggers one execution batch immediately
func (s *Server) handleExecutionRun(w http.ResponseWriter, r *http.Request) {
	results, err := s.executor.Execute()
	if err != nil {
		s.log.Error().Err(err).Msg("Execution batch failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"processed": len(results),
		"results":   results,
	})
}

// handleRetryRun triggers one retry sweep immediately
func (s *Server) handleRetryRun(w http.ResponseWriter, r *http.Request) {
	if err := s.retry.Run(); err != nil {
		s.log.Error().Err(err).Msg("Retry sweep failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// handleQueueList lists retry queue items for inspection
func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.queue.List(limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

// handleLogsForSKU lists recent execution attempts for a SKU
func (s *Server) handleLogsForSKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		s.respondError(w, http.StatusBadRequest, "sku is required")
		return
	}

	entries, err := s.logs.RecentForSKU(sku, 50)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sku":     sku,
		"entries": entries,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
