package server

import (
	"net/http"
	"strconv"

	"github.com/me/workmaster/internal/logging"
	"github.com/me/workmaster/pkg/model"
)

// handleJournal lists recorded scheduler decisions.
// GET /api/v1/journal?limit=&offset=&kind=&agent=
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, r, http.StatusNotFound, model.NewNotFoundError("journal", "default"))
		return
	}

	opts, fieldErrs := parseListOptions(r)
	if len(fieldErrs) > 0 {
		respondError(w, r, http.StatusBadRequest, model.NewValidationError("Invalid query parameters", fieldErrs...))
		return
	}

	events, total, err := s.journal.List(r.Context(), opts)
	if err != nil {
		logging.FromContext(r.Context()).Error("journal list failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	opts = opts.Clamp()
	respondList(w, r, events, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(events) < total,
	})
}

func parseListOptions(r *http.Request) (model.ListOptions, []model.FieldError) {
	q := r.URL.Query()
	opts := model.ListOptions{
		Kind:  q.Get("kind"),
		Agent: q.Get("agent"),
	}
	var errs []model.FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, model.FieldError{Field: p.name, Message: "expected a non-negative integer"})
			continue
		}
		*p.dst = n
	}
	return opts, errs
}
