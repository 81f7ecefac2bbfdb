package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleSSESnapshots streams published snapshots via Server-Sent Events. A
// snapshot is sent whenever the tick or pass count moves; the stream ends
// once the controller is disabled.
// GET /api/v1/sse/snapshots
func (s *Server) handleSSESnapshots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	snap := s.source.Snapshot()
	if err := sendSSEEvent(w, flusher, "init", snap); err != nil {
		s.logger.Debug("sse client disconnected", "error", err)
		return
	}
	if !snap.Enabled {
		sendSSEEvent(w, flusher, "complete", snap)
		return
	}

	interval := s.config.SSEInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTick, lastPasses := snap.Tick, snap.Passes

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap = s.source.Snapshot()

			if snap.Tick != lastTick || snap.Passes != lastPasses {
				if err := sendSSEEvent(w, flusher, "update", snap); err != nil {
					s.logger.Debug("sse client disconnected")
					return
				}
				lastTick, lastPasses = snap.Tick, snap.Passes
			} else {
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
			}

			if !snap.Enabled {
				sendSSEEvent(w, flusher, "complete", snap)
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
