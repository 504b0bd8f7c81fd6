package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/ingest"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
)

// multipartMemory is the part of a multipart form kept in memory; larger
// files spill to disk.
const multipartMemory = 32 << 20

// SourceResponse reports a staged source and, once both required sources
// are staged, the snapshot the pass produced.
type SourceResponse struct {
	Source   core.SourceKind   `json:"source"`
	Files    []string          `json:"files"`
	Rows     int               `json:"rows"`
	Columns  []string          `json:"columns"`
	Missing  []core.SourceKind `json:"missing,omitempty"`
	Snapshot *core.Summary     `json:"snapshot,omitempty"`

	// Validation lists the files with invalid rows or missing columns
	Validation []core.ValidationReport `json:"validation,omitempty"`
}

// handlePutSource stages an uploaded source file. The form field "file"
// carries the file; the applications source accepts several, and with
// ?append=true adds them to the staged set instead of replacing it.
func (s *Server) handlePutSource(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseSourceKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	log := logging.WithFields(r.Context(), "source", kind)

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: more than %d bytes", ingest.ErrFileTooLarge, tooLarge.Limit)
		} else {
			err = fmt.Errorf("%w: %v", ingest.ErrNoFile, err)
		}
		s.uploadFailed(w, r, kind, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		s.uploadFailed(w, r, kind, ingest.ErrNoFile)
		return
	}
	if kind != core.SourceApplications {
		files = files[:1]
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	resp := SourceResponse{Source: kind}
	tables := make([]*core.Table, 0, len(files))
	for _, fh := range files {
		if err := ctx.Err(); err != nil {
			s.uploadFailed(w, r, kind, err)
			return
		}
		t, err := readPart(kind, fh, maxSize)
		if err != nil {
			s.uploadFailed(w, r, kind, err)
			return
		}
		tables = append(tables, t)
		resp.Files = append(resp.Files, fh.Filename)
		resp.Rows += t.Len()
		if resp.Columns == nil {
			resp.Columns = t.Header
		}
		log.Info("source parsed", "file", fh.Filename, "rows", t.Len(), "columns", len(t.Header))
		if report := core.ValidateTable(t, 0); !report.Valid() {
			log.Warn("source has invalid rows", "file", fh.Filename,
				"invalid_rows", report.InvalidRows, "missing_columns", report.MissingColumns)
			resp.Validation = append(resp.Validation, report)
		}
	}

	appendApps := r.URL.Query().Get("append") == "true"
	var stageErr error
	src, snap, err := s.stageAndLoad(ctx, func() (core.Sources, error) {
		src, err := s.staged.Set(kind, tables, appendApps)
		stageErr = err
		return src, err
	})
	if stageErr != nil {
		s.uploadFailed(w, r, kind, stageErr)
		return
	}
	if s.metrics != nil {
		s.metrics.Upload(kind, "ok")
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp.Missing = src.Missing()
	if snap == nil {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	sum := snap.Summary()
	resp.Snapshot = &sum
	writeJSON(w, http.StatusOK, resp)
}

func readPart(kind core.SourceKind, fh *multipart.FileHeader, limit int64) (*core.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return ingest.Read(kind, fh.Filename, f, limit)
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, kind core.SourceKind, err error) {
	if s.metrics != nil {
		s.metrics.Upload(kind, "error")
	}
	s.respondError(w, r, err)
}

// handleDeleteSource unstages a source and reconciles what remains. Removing
// a required source leaves the current snapshot in place.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseSourceKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	src, snap, err := s.stageAndLoad(r.Context(), func() (core.Sources, error) {
		return s.staged.Remove(kind), nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := SourceResponse{Source: kind, Missing: src.Missing()}
	if snap != nil {
		sum := snap.Summary()
		resp.Snapshot = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListSources lists the staged sources.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	status := s.staged.Status()
	if status == nil {
		status = []sourceStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": status})
}

// handleSnapshot returns the summary of the current snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Summary())
}
