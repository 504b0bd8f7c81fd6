package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of snapshots kept when none is configured.
const DefaultCacheSize = 8

// Recorder receives reconciliation and query events. Implemented by the
// metrics package; a nil Recorder discards events.
type Recorder interface {
	ObservePass(d time.Duration, records map[SourceKind]int)
	CacheHit()
	Query(op string)
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(time.Duration, map[SourceKind]int) {}
func (nopRecorder) CacheHit()                                     {}
func (nopRecorder) Query(string)                                  {}

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	MaxPairs  int
	CacheSize int
}

// Service is the query facade over the current snapshot. Loading sources
// swaps the snapshot atomically; queries never block on a load.
type Service struct {
	opts     Options
	cache    *lru.Cache[uint64, *Snapshot]
	group    singleflight.Group
	current  atomic.Pointer[Snapshot]
	recorder Recorder
}

// NewService creates a new Service instance.
func NewService(cfg ServiceConfig, recorder Recorder) (*Service, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[uint64, *Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		opts:     Options{MaxPairs: cfg.MaxPairs},
		cache:    cache,
		recorder: recorder,
	}, nil
}

// Load reconciles the sources and makes the result current. Sources whose
// content fingerprint was seen before reuse the cached snapshot, and
// concurrent loads of the same content share one pass. On failure the
// previous snapshot stays current. Loads of different sources install
// whichever finishes last; callers that stage sources order their loads.
func (s *Service) Load(ctx context.Context, src Sources) (*Snapshot, error) {
	fp := src.Fingerprint()
	logger := slog.Default().With("fingerprint", strconv.FormatUint(fp, 16))

	if snap, ok := s.cache.Get(fp); ok {
		s.recorder.CacheHit()
		s.current.Store(snap)
		logger.Debug("snapshot cache hit", "snapshot_id", snap.ID)
		return snap, nil
	}

	v, err, shared := s.group.Do(strconv.FormatUint(fp, 16), func() (any, error) {
		// A pass for the same content may have finished since the lookup above.
		if snap, ok := s.cache.Get(fp); ok {
			s.recorder.CacheHit()
			return snap, nil
		}
		start := time.Now()
		snap, err := reconcile(ctx, src, s.opts, fp)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		s.cache.Add(fp, snap)
		s.recorder.ObservePass(elapsed, snap.RecordCounts())
		logger.Info("reconciliation pass complete",
			"snapshot_id", snap.ID,
			"primary", snap.Primary.Len(),
			"b2b", snap.B2B.Len(),
			"erp", snap.ERP.Len(),
			"applications", len(snap.Applications),
			"warnings", len(snap.Warnings),
			"duration", elapsed,
		)
		for _, w := range snap.Warnings {
			logger.Warn("reconciliation warning", "source", w.Source, "column", w.Column, "feature", w.Feature)
		}
		return snap, nil
	})
	if err != nil {
		logger.Error("reconciliation pass failed", "error", err)
		return nil, err
	}
	if shared {
		s.recorder.CacheHit()
	}
	snap := v.(*Snapshot)
	s.current.Store(snap)
	return snap, nil
}

// Snapshot returns the current snapshot or ErrNoSnapshot.
func (s *Service) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (s *Service) snapshotFor(op string) (*Snapshot, error) {
	s.recorder.Query(op)
	return s.Snapshot()
}

// ListCategories returns the categories of the primary catalog.
func (s *Service) ListCategories() ([]string, error) {
	snap, err := s.snapshotFor("list_categories")
	if err != nil {
		return nil, err
	}
	return snap.Categories(), nil
}

// AttributesFor returns the active mapped attributes of a category.
func (s *Service) AttributesFor(category string) ([]string, error) {
	snap, err := s.snapshotFor("attributes_for")
	if err != nil {
		return nil, err
	}
	return snap.AttributesFor(category), nil
}

// Filter evaluates a filter state against the current snapshot.
func (s *Service) Filter(st FilterState) (*FilterResult, error) {
	snap, err := s.snapshotFor("filter")
	if err != nil {
		return nil, err
	}
	return snap.Filter(st)
}

// SearchByBrandReference finds products by brand and same-index reference.
func (s *Service) SearchByBrandReference(brand, reference string) (*SearchResult, error) {
	snap, err := s.snapshotFor("search")
	if err != nil {
		return nil, err
	}
	return snap.SearchByBrandReference(brand, reference)
}

// ReferencesFor returns the candidate references of a brand.
func (s *Service) ReferencesFor(brand string) ([]string, error) {
	snap, err := s.snapshotFor("references_for")
	if err != nil {
		return nil, err
	}
	return snap.ReferencesFor(brand), nil
}

// Brands returns the brand vocabulary.
func (s *Service) Brands() ([]string, error) {
	snap, err := s.snapshotFor("brands")
	if err != nil {
		return nil, err
	}
	return snap.Brands(), nil
}

// ApplicationsFor runs the application cascade.
func (s *Service) ApplicationsFor(q ApplicationQuery) (*ApplicationResult, error) {
	snap, err := s.snapshotFor("applications_for")
	if err != nil {
		return nil, err
	}
	return snap.ApplicationsFor(q), nil
}

// ExclusiveOf returns the records of catalog a absent from catalog b.
func (s *Service) ExclusiveOf(a, b SourceKind) (*View, error) {
	snap, err := s.snapshotFor("exclusive_of")
	if err != nil {
		return nil, err
	}
	return snap.ExclusiveOf(a, b)
}

// RankBrands ranks brands against a free-text query.
func (s *Service) RankBrands(query string, limit int) ([]BrandScore, error) {
	snap, err := s.snapshotFor("rank_brands")
	if err != nil {
		return nil, err
	}
	return snap.RankBrands(query, limit), nil
}

// ExportProjection writes the chosen columns of a view in the given format.
func (s *Service) ExportProjection(w io.Writer, v *View, columns []string, format ExportFormat) error {
	s.recorder.Query("export")
	return ExportProjection(w, v, columns, format)
}
