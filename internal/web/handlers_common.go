// Package web provides HTTP handlers for the reconciliation API.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
)

const (
	defaultPageSize = 100
	maxPageSize     = 5000

	// maxJSONBody bounds request bodies of the session endpoints.
	maxJSONBody = 1 << 20
)

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseColumns reads the comma-separated columns parameter.
func parseColumns(r *http.Request) []string {
	raw := r.URL.Query().Get("columns")
	if raw == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// decodeJSON reads a bounded JSON body into v. Malformed bodies are
// reported as invalid selections.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", core.ErrInvalidSelection, err)
	}
	return nil
}

// ViewResponse is one page of a result view.
type ViewResponse struct {
	Source  core.SourceKind `json:"source"`
	Columns []string        `json:"columns"`
	Rows    [][]string      `json:"rows"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
}

// pageView projects a view onto the requested columns (the view's display
// columns by default) and returns the requested page.
func pageView(r *http.Request, v *core.View) (ViewResponse, error) {
	header, rows, err := core.ProjectRows(v, parseColumns(r))
	if err != nil {
		return ViewResponse{}, err
	}
	limit := parseIntParam(r, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := parseIntParam(r, "offset", 0)

	resp := ViewResponse{Columns: header, Total: len(rows), Offset: offset, Rows: [][]string{}}
	if v != nil {
		resp.Source = v.Source
	}
	if offset < len(rows) {
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		resp.Rows = rows[offset:end]
	}
	return resp, nil
}

// writeExport streams a projection of v as a file download. The export is
// rendered into a buffer first so a failure still produces a JSON error.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, v *core.View, name string) {
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.ExportProjection(&buf, v, parseColumns(r), format); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s.%s", name, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "file", filename, "error", err)
	}
}
