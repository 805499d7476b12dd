package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// SubscribeDrawingEvents handles GET /drawings/{id}/events (SSE).
// The first message carries the full state; later ones carry only what changed.
func (s *Server) SubscribeDrawingEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.engine.UnitStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	s.logger.Info("SSE: Subscribing to unit updates", "unit_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	s.sendDiff(w, domain.Diff(nil, &current), watchList)
	flusher.Flush()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "unit_id", id)
			return
		case <-ticker.C:
			next, err := s.engine.UnitStatus(r.Context(), id)
			if err != nil {
				if r.Context().Err() == nil {
					s.logger.Warn("SSE: Status read failed", "unit_id", id, "error", err)
				}
				continue
			}
			if s.sendDiff(w, domain.Diff(&current, &next), watchList) {
				flusher.Flush()
			}
			current = next
		}
	}
}

// sendDiff writes diff as a data message unless it is empty or filtered out.
func (s *Server) sendDiff(w http.ResponseWriter, diff *domain.StatusDiff, watchList []string) bool {
	if diff == nil || !watches(diff, watchList) {
		return false
	}
	payload, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("SSE: Diff encode failed", "error", err)
		return false
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	return true
}

// watches reports whether diff touches a watched field. An empty list watches everything.
func watches(diff *domain.StatusDiff, watchList []string) bool {
	if len(watchList) == 0 {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "status":
			if diff.Status != nil || diff.IsRunning != nil {
				return true
			}
		case "node":
			if diff.CurrentNode != nil {
				return true
			}
		case "progress":
			if diff.Progress != nil {
				return true
			}
		case "error":
			if diff.Error != nil {
				return true
			}
		}
	}
	return false
}
