package web

import (
	"sync"
	"time"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// stagedSources holds the most recent upload of every source kind. A
// reconciliation pass runs over a copy once both required kinds are staged.
type stagedSources struct {
	mu       sync.Mutex
	src      core.Sources
	uploaded map[core.SourceKind]time.Time
}

func newStagedSources() *stagedSources {
	return &stagedSources{uploaded: make(map[core.SourceKind]time.Time)}
}

// Set stages tables of one kind. Application tables are added to the
// staged set when appendApps is true; otherwise they replace it.
func (st *stagedSources) Set(kind core.SourceKind, tables []*core.Table, appendApps bool) (core.Sources, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.src
	next.Applications = append([]*core.Table(nil), st.src.Applications...)
	if kind == core.SourceApplications && !appendApps {
		next.Applications = nil
	}
	for _, t := range tables {
		if err := next.Set(t); err != nil {
			return core.Sources{}, err
		}
	}
	st.src = next
	st.uploaded[kind] = time.Now()
	return st.copyLocked(), nil
}

// Replace stages a complete set of sources at once.
func (st *stagedSources) Replace(src core.Sources) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.src = src
	st.src.Applications = append([]*core.Table(nil), src.Applications...)
	now := time.Now()
	for _, s := range stagedStatus(src, nil) {
		st.uploaded[s.Source] = now
	}
}

// Remove unstages a kind and returns the remaining sources.
func (st *stagedSources) Remove(kind core.SourceKind) core.Sources {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch kind {
	case core.SourcePrimary:
		st.src.Primary = nil
	case core.SourceMapping:
		st.src.Mapping = nil
	case core.SourceCrossReference:
		st.src.CrossReference = nil
	case core.SourceApplications:
		st.src.Applications = nil
	case core.SourceB2B:
		st.src.B2B = nil
	case core.SourceERP:
		st.src.ERP = nil
	}
	delete(st.uploaded, kind)
	return st.copyLocked()
}

// Status lists the staged kinds.
func (st *stagedSources) Status() []sourceStatus {
	st.mu.Lock()
	defer st.mu.Unlock()
	return stagedStatus(st.src, st.uploaded)
}

func (st *stagedSources) copyLocked() core.Sources {
	out := st.src
	out.Applications = append([]*core.Table(nil), st.src.Applications...)
	return out
}

type sourceStatus struct {
	Source   core.SourceKind `json:"source"`
	Files    []string        `json:"files"`
	Rows     int             `json:"rows"`
	Uploaded time.Time       `json:"uploaded,omitzero"`
}

func stagedStatus(src core.Sources, uploaded map[core.SourceKind]time.Time) []sourceStatus {
	var out []sourceStatus
	add := func(kind core.SourceKind, tables ...*core.Table) {
		s := sourceStatus{Source: kind, Uploaded: uploaded[kind]}
		for _, t := range tables {
			if t == nil {
				continue
			}
			s.Files = append(s.Files, t.Name)
			s.Rows += t.Len()
		}
		if len(s.Files) > 0 {
			out = append(out, s)
		}
	}
	add(core.SourcePrimary, src.Primary)
	add(core.SourceMapping, src.Mapping)
	add(core.SourceCrossReference, src.CrossReference)
	add(core.SourceApplications, src.Applications...)
	add(core.SourceB2B, src.B2B)
	add(core.SourceERP, src.ERP)
	return out
}
