package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, discoveryResponse{
		Name:        "workmaster API",
		Version:     "v1",
		Description: "Read-only view of the work scheduler: agents, active work, denied queue and decision journal",
		Endpoints: []endpointInfo{
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
			{"/api/v1/snapshot", []string{"GET"}, "Full scheduler snapshot"},
			{"/api/v1/agents", []string{"GET"}, "Registered agents with priority, fairness timestamp and status"},
			{"/api/v1/agents/{name}", []string{"GET"}, "Single agent status"},
			{"/api/v1/entries", []string{"GET"}, "Active work entries"},
			{"/api/v1/entries/{id}", []string{"GET"}, "Single active work entry"},
			{"/api/v1/denied", []string{"GET"}, "Denied queue in insertion order"},
			{"/api/v1/journal", []string{"GET"}, "Scheduler decisions. Accepts ?limit, ?offset, ?kind, ?agent"},
			{"/api/v1/sse/snapshots", []string{"GET"}, "Server-Sent Events stream of snapshots, one per tick"},
		},
	})
}
