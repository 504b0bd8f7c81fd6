package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

const defaultRankLimit = 10

// handleListCategories lists the categories of the primary catalog.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.ListCategories()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// handleAttributes lists the active attributes of a category.
func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	attrs, err := s.service.AttributesFor(category)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "attributes": attrs})
}

// SearchResponse is a brand/reference search with its result page.
type SearchResponse struct {
	Brand      string   `json:"brand"`
	Reference  string   `json:"reference,omitempty"`
	References []string `json:"references"`
	ViewResponse
}

func (s *Server) search(r *http.Request) (*core.SearchResult, error) {
	q := r.URL.Query()
	return s.service.SearchByBrandReference(q.Get("brand"), q.Get("reference"))
}

// handleSearch finds products by brand and, optionally, a reference paired
// with that brand.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.search(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page, err := pageView(r, res.Rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Brand:        res.Brand,
		Reference:    res.Reference,
		References:   res.References,
		ViewResponse: page,
	})
}

func (s *Server) handleExportSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.search(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeExport(w, r, res.Rows, "search")
}

// handleBrands lists the brand vocabulary, or with ?brand= the references
// known for that brand.
func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	if brand := r.URL.Query().Get("brand"); strings.TrimSpace(brand) != "" {
		refs, err := s.service.ReferencesFor(brand)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "references": refs})
		return
	}
	brands, err := s.service.Brands()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

// handleRankBrands ranks brands by similarity to ?q=.
func (s *Server) handleRankBrands(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.service.RankBrands(r.URL.Query().Get("q"), parseIntParam(r, "limit", defaultRankLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": ranked})
}

func applicationQuery(r *http.Request) core.ApplicationQuery {
	q := r.URL.Query()
	return core.ApplicationQuery{SKU: q.Get("sku"), Brand: q.Get("brand"), Reference: q.Get("reference")}
}

// handleApplications runs the SKU, brand, reference cascade over the
// application table.
func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.ApplicationsFor(applicationQuery(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExportApplications(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.ApplicationsFor(applicationQuery(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeExport(w, r, res.View(), "applications")
}

func (s *Server) exclusive(r *http.Request) (*core.View, string, error) {
	a, err := core.ParseSourceKind(chi.URLParam(r, "a"))
	if err != nil {
		return nil, "", err
	}
	b, err := core.ParseSourceKind(chi.URLParam(r, "b"))
	if err != nil {
		return nil, "", err
	}
	v, err := s.service.ExclusiveOf(a, b)
	if err != nil {
		return nil, "", err
	}
	return v, fmt.Sprintf("%s_not_in_%s", a, b), nil
}

// handleExclusive lists the records of catalog a whose product is absent
// from catalog b.
func (s *Server) handleExclusive(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.exclusive(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page, err := pageView(r, v)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleExportExclusive(w http.ResponseWriter, r *http.Request) {
	v, name, err := s.exclusive(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeExport(w, r, v, name)
}
