package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// SessionResponse is the evaluated state of a filter session.
type SessionResponse struct {
	Session        string           `json:"session"`
	ExtraAttribute string           `json:"extraAttribute,omitempty"`
	IncludeStock   bool             `json:"includeStock"`
	Filters        []core.Selection `json:"filters"`
	*core.FilterResult
	Result ViewResponse `json:"result"`
}

// handleCreateSession starts a filter session with no category selected.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.Snapshot(); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := s.sessions.Create()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+id)
	s.writeSession(w, r, id, core.NewFilterState(), http.StatusCreated)
}

// handleEvaluateSession evaluates the session's filter state against the
// current snapshot.
func (s *Server) handleEvaluateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeSession(w, r, id, st, http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetCategory selects a category, resetting the extra attribute and
// every filter.
func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.WithCategory(body.Category)
	})
}

// handleSetExtra selects the extra attribute; an empty attribute clears it.
func (s *Server) handleSetExtra(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Attribute string `json:"attribute"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.WithExtraAttribute(body.Attribute)
	})
}

// handleSetStock toggles the stock column and filter.
func (s *Server) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Include bool `json:"include"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.WithStock(body.Include)
	})
}

// handlePutFilter adds or replaces the filter on one attribute. The body is
// {"op": "in", "values": [...]} or {"op": "gte", "text": "10"}; op
// defaults to "in".
func (s *Server) handlePutFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Op     string   `json:"op"`
		Values []string `json:"values"`
		Text   string   `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	op, err := core.ParseFilterOperator(body.Op)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sel := core.Selection{
		Attribute: chi.URLParam(r, "attribute"),
		Op:        op,
		Values:    body.Values,
		Text:      body.Text,
	}
	if err := sel.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.WithFilter(sel)
	})
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	attribute := chi.URLParam(r, "attribute")
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.WithoutFilter(attribute)
	})
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.updateSession(w, r, func(st core.FilterState) core.FilterState {
		return st.Cleared()
	})
}

// handleExportSession exports the session's current result rows.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.service.Filter(st)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	name := "products"
	if res.Category != "" {
		name = res.Category
	}
	s.writeExport(w, r, res.Rows, name)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request, fn func(core.FilterState) core.FilterState) {
	id := chi.URLParam(r, "id")
	st, err := s.sessions.Update(id, fn)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeSession(w, r, id, st, http.StatusOK)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, id string, st core.FilterState, status int) {
	res, err := s.service.Filter(st)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page, err := pageView(r, res.Rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filters := st.Selections()
	if filters == nil {
		filters = []core.Selection{}
	}
	writeJSON(w, status, SessionResponse{
		Session:        id,
		ExtraAttribute: st.ExtraAttribute(),
		IncludeStock:   st.IncludeStock(),
		Filters:        filters,
		FilterResult:   res,
		Result:         page,
	})
}
