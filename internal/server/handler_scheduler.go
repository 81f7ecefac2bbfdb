package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/workmaster/pkg/model"
)

// handleSnapshot returns the whole published snapshot.
// GET /api/v1/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, s.source.Snapshot())
}

// GET /api/v1/agents
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.source.Snapshot().Agents
	respondList(w, r, agents, &model.Pagination{
		Total: len(agents),
		Limit: len(agents),
	})
}

// GET /api/v1/agents/{name}
func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, a := range s.source.Snapshot().Agents {
		if a.Name == name {
			respondOK(w, r, a)
			return
		}
	}
	respondError(w, r, http.StatusNotFound, model.NewNotFoundError("agent", name))
}

// GET /api/v1/entries
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.source.Snapshot().Entries
	respondList(w, r, entries, &model.Pagination{
		Total: len(entries),
		Limit: len(entries),
	})
}

// GET /api/v1/entries/{id}
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, e := range s.source.Snapshot().Entries {
		if e.ID == id {
			respondOK(w, r, e)
			return
		}
	}
	respondError(w, r, http.StatusNotFound, model.NewNotFoundError("entry", id))
}

// GET /api/v1/denied
func (s *Server) handleDenied(w http.ResponseWriter, r *http.Request) {
	denied := s.source.Snapshot().Denied
	if denied == nil {
		denied = []string{}
	}
	respondOK(w, r, denied)
}
