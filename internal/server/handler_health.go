package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Scheduler string `json:"scheduler"`
	Journal   string `json:"journal"`
	Tick      uint64 `json:"tick"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()

	scheduler := "disabled"
	if snap.Enabled {
		scheduler = "enabled"
	}
	journal := "unavailable"
	if s.journal != nil {
		journal = "sqlite"
	}

	respondOK(w, r, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Scheduler: scheduler,
		Journal:   journal,
		Tick:      snap.Tick,
	})
}
