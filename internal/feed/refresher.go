package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/calendar"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
	"github.com/pfrederiksen/vietnam-holidays/internal/logger"
	"github.com/pfrederiksen/vietnam-holidays/internal/storage"
)

// Metric names
const (
	MetricRefreshSuccess  = "refresh.success"
	MetricRefreshEmpty    = "refresh.empty"
	MetricRefreshDuration = "refresh.duration"
	MetricPageFailures    = "refresh.page_failures"
	MetricRecords         = "feed.records"
)

// Refresher rebuilds the feed from its source pages.
type Refresher struct {
	source   holiday.Source
	pages    []holiday.Page
	meta     calendar.Meta
	location *time.Location
	cache    *Cache
	store    *storage.Storage

	// Now returns the current time; tests override it.
	Now func() time.Time

	mu sync.Mutex
}

// Option configures a Refresher
type Option func(*Refresher)

// WithStorage persists every successful snapshot and allows Warm to restore it.
func WithStorage(s *storage.Storage) Option {
	return func(r *Refresher) {
		r.store = s
	}
}

// WithLocation sets the timezone used to derive the current year.
func WithLocation(loc *time.Location) Option {
	return func(r *Refresher) {
		if loc != nil {
			r.location = loc
		}
	}
}

// NewRefresher creates a Refresher publishing into cache.
func NewRefresher(source holiday.Source, pages []holiday.Page, meta calendar.Meta, cache *Cache, opts ...Option) *Refresher {
	r := &Refresher{
		source:   source,
		pages:    pages,
		meta:     meta,
		location: time.UTC,
		cache:    cache,
		Now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the cache the refresher publishes to.
func (r *Refresher) Cache() *Cache {
	return r.cache
}

// Refresh fetches all pages and publishes a new snapshot. When the build
// produces no records the cache is left untouched and holiday.ErrNoRecords
// is returned. Concurrent calls run one after another.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	began := time.Now()
	defer func() {
		logger.RecordTiming(MetricRefreshDuration, time.Since(began))
	}()

	start := r.Now()

	year := start.In(r.location).Year()
	logger.Info("Refreshing holiday feed", logger.Fields{"pages": len(r.pages), "current_year": year})

	result := holiday.NewBuilder(r.source, year).Build(ctx, r.pages)
	for _, p := range result.Pages {
		if p.Err != nil {
			logger.IncrCounter(MetricPageFailures)
		}
	}

	if err := result.Err(); err != nil {
		logger.IncrCounter(MetricRefreshEmpty)
		_, hasData := r.cache.Load()
		logger.Warn("No holidays found, keeping previous feed", logger.Fields{"has_previous": hasData}, err)
		return nil, err
	}

	snap := r.publish(result.Records, start)

	if r.store != nil {
		if err := r.store.SaveSnapshot(holiday.NewSnapshot(snap.Records, snap.UpdatedAt)); err != nil {
			// The in-memory feed is already live
			logger.Warn("Failed to persist snapshot", logger.Fields{"dir": r.store.Dir()}, err)
		}
	}

	logger.IncrCounter(MetricRefreshSuccess)
	logger.Info("Holiday feed updated", logger.Fields{
		"records":    len(snap.Records),
		"years":      snap.Years,
		"updated_at": snap.UpdatedAt.UTC().Format(time.RFC3339),
	})

	return snap, nil
}

// Warm publishes the snapshot saved by a previous run, if any. It reports
// whether a snapshot was restored.
func (r *Refresher) Warm() (bool, error) {
	if r.store == nil {
		return false, nil
	}

	saved, err := r.store.LoadSnapshot()
	if err != nil {
		return false, fmt.Errorf("loading saved snapshot: %w", err)
	}
	if len(saved.Records) == 0 {
		return false, nil
	}

	updated, err := time.Parse(time.RFC3339, saved.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("parsing saved snapshot time %q: %w", saved.UpdatedAt, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A refresh that finished first wins
	if _, ok := r.cache.Load(); ok {
		return false, nil
	}
	r.publish(saved.Records, updated)

	logger.Info("Restored saved holiday feed", logger.Fields{
		"records":    len(saved.Records),
		"updated_at": saved.UpdatedAt,
	})
	return true, nil
}

// Run refreshes once, discarding the result. It is the job handed to the
// scheduler; Refresh already logs every outcome.
func (r *Refresher) Run(ctx context.Context) {
	_, _ = r.Refresh(ctx)
}

func (r *Refresher) publish(records []holiday.Record, updated time.Time) *Snapshot {
	snap := &Snapshot{
		ICS:       []byte(calendar.GenerateFeed(r.meta, records, updated)),
		Records:   records,
		Years:     holiday.Years(records),
		UpdatedAt: updated,
	}
	r.cache.Store(snap)
	logger.SetGauge(MetricRecords, float64(len(records)))
	return snap
}
