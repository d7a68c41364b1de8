// Package service holds the stateful layer above the engine: the latest
// snapshot and report per price model, caching, publishing and alerts.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxAlertsPerScan bounds how many new opportunities one scan announces.
const maxAlertsPerScan = 10

// Collector gathers snapshots and evaluates them. *pipeline.Orchestrator
// implements it.
type Collector interface {
	Collect(ctx context.Context, kind domain.PriceModel, limit int) domain.Snapshot
	Evaluate(snap domain.Snapshot, params arbitrage.Params) domain.Report
	Venues(kind domain.PriceModel) []domain.Venue
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ReportObserver records scan outcomes.
type ReportObserver interface {
	ObserveReport(report domain.Report, d time.Duration)
}

// ScanConfig holds the defaults applied to scheduled scans and to queries
// that leave a parameter unset.
type ScanConfig struct {
	Kinds          []domain.PriceModel
	PerVenueLimit  int
	ResultLimit    int
	MaxSnapshotAge time.Duration
	// MinReturn is the default filter per price model.
	MinReturn map[domain.PriceModel]float64
}

// Query is an on-demand evaluation request. Zero values fall back to the
// configured defaults.
type Query struct {
	Kind       domain.PriceModel
	MinReturn  *float64
	Limit      int
	Similarity float64
	// Fresh forces a new collection instead of reusing the latest snapshot.
	Fresh bool
}

// ScanService keeps the last known good snapshot and report for each price
// model. The cache, bus, notifier and observer are optional.
type ScanService struct {
	collector Collector
	cache     domain.ReportCache
	bus       domain.SignalBus
	notifier  Notifier
	observer  ReportObserver
	cfg       ScanConfig
	logger    *slog.Logger
	now       func() time.Time

	flight singleflight.Group

	mu        sync.RWMutex
	snapshots map[domain.PriceModel]domain.Snapshot
	reports   map[domain.PriceModel]domain.Report
}

// NewScanService creates a ScanService.
func NewScanService(
	collector Collector,
	cache domain.ReportCache,
	bus domain.SignalBus,
	notifier Notifier,
	observer ReportObserver,
	cfg ScanConfig,
	logger *slog.Logger,
) *ScanService {
	if cfg.MinReturn == nil {
		cfg.MinReturn = map[domain.PriceModel]float64{}
	}
	return &ScanService{
		collector: collector,
		cache:     cache,
		bus:       bus,
		notifier:  notifier,
		observer:  observer,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scan_service")),
		now:       func() time.Time { return time.Now().UTC() },
		snapshots: make(map[domain.PriceModel]domain.Snapshot),
		reports:   make(map[domain.PriceModel]domain.Report),
	}
}

// Kinds returns the enabled price models.
func (s *ScanService) Kinds() []domain.PriceModel {
	return append([]domain.PriceModel(nil), s.cfg.Kinds...)
}

// Venues returns the venues queried for kind.
func (s *ScanService) Venues(kind domain.PriceModel) []domain.Venue {
	return s.collector.Venues(kind)
}

func (s *ScanService) enabled(kind domain.PriceModel) error {
	for _, k := range s.cfg.Kinds {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: kind %q is not enabled", domain.ErrInvalidParams, kind)
}

// Scan collects and evaluates kind with the configured defaults, then
// records, caches, publishes and announces the report.
func (s *ScanService) Scan(ctx context.Context, kind domain.PriceModel) (domain.Report, error) {
	if err := s.enabled(kind); err != nil {
		return domain.Report{}, err
	}

	start := time.Now()
	snap, err := s.collect(ctx, kind)
	if err != nil {
		return domain.Report{}, err
	}
	report := s.collector.Evaluate(snap, arbitrage.Params{
		Kind:      kind,
		MinReturn: s.cfg.MinReturn[kind],
		Limit:     s.cfg.ResultLimit,
		AsOf:      s.now(),
	})
	elapsed := time.Since(start)

	s.mu.Lock()
	prev, hadPrev := s.reports[kind]
	s.reports[kind] = report
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveReport(report, elapsed)
	}

	s.logger.InfoContext(ctx, "scan complete",
		slog.String("kind", string(kind)),
		slog.Int("instruments", snap.Total()),
		slog.Int("groups", report.GroupsMatched),
		slog.Int("candidates", report.TotalCandidates),
		slog.Int("opportunities", report.Count),
		slog.Int("venue_errors", len(report.VenueErrors)),
		slog.Duration("duration", elapsed),
	)

	if s.cache != nil {
		if err := s.cache.SetReport(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "cache report failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}

	s.publish(ctx, domain.ChannelArb, "arb_report", report)
	s.publish(ctx, domain.ChannelStatus, "scan_status", scanStatus{
		Kind:          kind,
		AsOf:          snap.AsOf,
		VenueCounts:   report.VenueCounts,
		VenueErrors:   report.VenueErrors,
		Opportunities: report.Count,
	})

	var prevIDs map[string]bool
	if hadPrev {
		prevIDs = make(map[string]bool, len(prev.Opportunities))
		for _, o := range prev.Opportunities {
			prevIDs[o.ID] = true
		}
	}
	s.announce(ctx, report, prevIDs, prev.VenueErrors)

	return report, nil
}

// Evaluate runs the engine for q, reusing the latest snapshot when it is
// younger than the configured maximum age.
func (s *ScanService) Evaluate(ctx context.Context, q Query) (domain.Report, error) {
	if err := s.enabled(q.Kind); err != nil {
		return domain.Report{}, err
	}
	if q.Similarity < 0 || q.Similarity > 1 {
		return domain.Report{}, fmt.Errorf("%w: similarity must be in (0, 1], got %v", domain.ErrInvalidParams, q.Similarity)
	}
	if q.Limit < 0 {
		return domain.Report{}, fmt.Errorf("%w: limit must be >= 0, got %d", domain.ErrInvalidParams, q.Limit)
	}

	params := arbitrage.Params{
		Kind:                q.Kind,
		MinReturn:           s.cfg.MinReturn[q.Kind],
		Limit:               s.cfg.ResultLimit,
		AsOf:                s.now(),
		SimilarityThreshold: q.Similarity,
	}
	if q.MinReturn != nil {
		params.MinReturn = *q.MinReturn
	}
	if q.Limit > 0 {
		params.Limit = q.Limit
	}

	snap, err := s.snapshot(ctx, q.Kind, q.Fresh)
	if err != nil {
		return domain.Report{}, err
	}
	return s.collector.Evaluate(snap, params), nil
}

// Markets returns the instruments of kind, reusing the latest snapshot when
// it is fresh enough.
func (s *ScanService) Markets(ctx context.Context, kind domain.PriceModel, fresh bool) (domain.Snapshot, error) {
	if err := s.enabled(kind); err != nil {
		return domain.Snapshot{}, err
	}
	return s.snapshot(ctx, kind, fresh)
}

// Latest returns the last report for kind from the cache, then from memory.
func (s *ScanService) Latest(ctx context.Context, kind domain.PriceModel) (domain.Report, error) {
	if err := s.enabled(kind); err != nil {
		return domain.Report{}, err
	}

	if s.cache != nil {
		report, err := s.cache.GetReport(ctx, kind)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "read cached report failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.RLock()
	report, ok := s.reports[kind]
	s.mu.RUnlock()
	if !ok {
		return domain.Report{}, fmt.Errorf("service: latest %s: %w", kind, domain.ErrNotFound)
	}
	return report, nil
}

// RunLoop scans every enabled kind immediately and then on every tick until
// ctx is cancelled.
func (s *ScanService) RunLoop(ctx context.Context, interval time.Duration) error {
	s.logger.InfoContext(ctx, "scan loop starting", slog.Duration("interval", interval))

	s.scanAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.scanAll(ctx)
		}
	}
}

// ScanAll scans every enabled kind concurrently and returns the reports in
// configuration order.
func (s *ScanService) ScanAll(ctx context.Context) []domain.Report {
	return s.scanAll(ctx)
}

func (s *ScanService) scanAll(ctx context.Context) []domain.Report {
	reports := make([]domain.Report, len(s.cfg.Kinds))
	var g errgroup.Group
	for i, kind := range s.cfg.Kinds {
		g.Go(func() error {
			report, err := s.Scan(ctx, kind)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.ErrorContext(ctx, "scan failed",
					slog.String("kind", string(kind)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// collect gathers a new snapshot and stores it. Concurrent calls for the same
// kind share one collection, which runs detached from ctx and is bounded by
// the collector's own deadline. A caller whose ctx ends stops waiting; the
// shared collection carries on for the others.
func (s *ScanService) collect(ctx context.Context, kind domain.PriceModel) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("service: collect %s: %w", kind, err)
	}
	ch := s.flight.DoChan(string(kind), func() (any, error) {
		snap := s.collector.Collect(context.WithoutCancel(ctx), kind, s.cfg.PerVenueLimit)
		s.mu.Lock()
		s.snapshots[kind] = snap
		s.mu.Unlock()
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return domain.Snapshot{}, fmt.Errorf("service: collect %s: %w", kind, ctx.Err())
	case res := <-ch:
		return res.Val.(domain.Snapshot), nil
	}
}

func (s *ScanService) snapshot(ctx context.Context, kind domain.PriceModel, fresh bool) (domain.Snapshot, error) {
	if !fresh && s.cfg.MaxSnapshotAge > 0 {
		s.mu.RLock()
		snap, ok := s.snapshots[kind]
		s.mu.RUnlock()
		if ok && s.now().Sub(snap.AsOf) < s.cfg.MaxSnapshotAge {
			return snap, nil
		}
	}
	return s.collect(ctx, kind)
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type scanStatus struct {
	Kind          domain.PriceModel       `json:"kind"`
	AsOf          time.Time               `json:"as_of"`
	VenueCounts   map[domain.Venue]int    `json:"venue_counts"`
	VenueErrors   map[domain.Venue]string `json:"venue_errors,omitempty"`
	Opportunities int                     `json:"opportunities"`
}

func (s *ScanService) publish(ctx context.Context, channel, typ string, payload any) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal bus message failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// announce alerts on opportunities absent from the previous report and on
// venues that started failing. A nil prevIDs means there was no previous
// report, so everything is new.
func (s *ScanService) announce(ctx context.Context, report domain.Report, prevIDs map[string]bool, prevErrors map[domain.Venue]string) {
	if s.notifier == nil {
		return
	}

	sent, skipped := 0, 0
	for _, o := range report.Opportunities {
		if prevIDs[o.ID] {
			continue
		}
		if sent >= maxAlertsPerScan {
			skipped++
			continue
		}
		title, msg := notify.OpportunityMessage(o)
		if err := s.notifier.Notify(ctx, notify.EventArbDetected, title, msg); err != nil {
			s.logger.WarnContext(ctx, "notify opportunity failed",
				slog.String("opportunity_id", o.ID),
				slog.String("error", err.Error()),
			)
		}
		sent++
	}
	if skipped > 0 {
		s.logger.InfoContext(ctx, "alerts capped",
			slog.String("kind", string(report.Kind)),
			slog.Int("sent", sent),
			slog.Int("skipped", skipped),
		)
	}

	for venue, msg := range report.VenueErrors {
		if _, already := prevErrors[venue]; already {
			continue
		}
		title := fmt.Sprintf("Venue down: %s", venue)
		if err := s.notifier.Notify(ctx, notify.EventVenueDown, title, msg); err != nil {
			s.logger.WarnContext(ctx, "notify venue down failed",
				slog.String("venue", string(venue)),
				slog.String("error", err.Error()),
			)
		}
	}
}
