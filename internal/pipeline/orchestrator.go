// Package pipeline collects instruments from every venue concurrently and
// hands the resulting snapshot to the arbitrage engine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Fetcher retrieves and normalizes the instruments of one venue.
type Fetcher interface {
	Venue() domain.Venue
	Kind() domain.PriceModel
	Fetch(ctx context.Context, limit int) (domain.FetchResult, error)
}

// Observer is told about every venue fetch. Metrics implement it.
type Observer interface {
	ObserveFetch(venue domain.Venue, kind domain.PriceModel, count, dropped int, err error, d time.Duration)
}

// Config bounds how long a collection may take.
type Config struct {
	// FetchTimeout applies to each venue individually.
	FetchTimeout time.Duration
	// Deadline applies to the collection as a whole.
	Deadline time.Duration
}

// Orchestrator fans out to the venue fetchers of one price model, merges
// their results into a snapshot and evaluates it.
type Orchestrator struct {
	fetchers []Fetcher
	engine   *arbitrage.Engine
	cfg      Config
	observer Observer
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. observer may be nil.
func NewOrchestrator(fetchers []Fetcher, engine *arbitrage.Engine, cfg Config, observer Observer, logger *slog.Logger) *Orchestrator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 45 * time.Second
	}
	return &Orchestrator{
		fetchers: fetchers,
		engine:   engine,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Venues returns the venues that serve the given price model, sorted.
func (o *Orchestrator) Venues(kind domain.PriceModel) []domain.Venue {
	var out []domain.Venue
	for _, f := range o.fetchers {
		if f.Kind() == kind {
			out = append(out, f.Venue())
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

type fetchOutcome struct {
	venue  domain.Venue
	result domain.FetchResult
	err    error
}

// Collect queries every fetcher of the given kind concurrently. A venue that
// fails, times out or misses the overall deadline contributes an empty list
// and an entry in Snapshot.Errors; its late result is discarded. Collect
// never fails as a whole.
func (o *Orchestrator) Collect(ctx context.Context, kind domain.PriceModel, limit int) domain.Snapshot {
	asOf := time.Now().UTC()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	var active []Fetcher
	for _, f := range o.fetchers {
		if f.Kind() == kind {
			active = append(active, f)
		}
	}

	outcomes := make([]fetchOutcome, len(active))
	var g errgroup.Group
	for i, f := range active {
		g.Go(func() error {
			outcomes[i] = o.fetchOne(ctx, f, kind, limit)
			return nil
		})
	}
	_ = g.Wait()

	snap := domain.Snapshot{
		Kind:        kind,
		AsOf:        asOf,
		Instruments: make(map[domain.Venue][]domain.NormalizedInstrument, len(active)),
		Dropped:     make(map[domain.Venue]int),
	}
	for _, out := range outcomes {
		list := snap.Instruments[out.venue]
		if list == nil {
			list = []domain.NormalizedInstrument{}
		}
		if out.err != nil {
			if snap.Errors == nil {
				snap.Errors = make(map[domain.Venue]string)
			}
			snap.Errors[out.venue] = out.err.Error()
			snap.Instruments[out.venue] = list
			continue
		}
		for _, inst := range out.result.Instruments {
			inst.AsOf = asOf
			list = append(list, inst)
		}
		snap.Instruments[out.venue] = list
		if out.result.Dropped > 0 {
			snap.Dropped[out.venue] += out.result.Dropped
		}
	}

	o.logger.InfoContext(ctx, "snapshot collected",
		slog.String("kind", string(kind)),
		slog.Int("instruments", snap.Total()),
		slog.Int("failed_venues", len(snap.Errors)),
	)
	return snap
}

func (o *Orchestrator) fetchOne(ctx context.Context, f Fetcher, kind domain.PriceModel, limit int) fetchOutcome {
	fctx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchOutcome, 1)
	go func() {
		res, err := f.Fetch(fctx, limit)
		done <- fetchOutcome{result: res, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-fctx.Done():
		out.err = fctx.Err()
	}
	out.venue = f.Venue()
	if out.err != nil {
		out.err = fmt.Errorf("pipeline: fetch %s: %w", out.venue, out.err)
		out.result = domain.FetchResult{}
		o.logger.WarnContext(ctx, "venue fetch failed",
			slog.String("venue", string(out.venue)),
			slog.String("error", out.err.Error()),
		)
	}

	if o.observer != nil {
		o.observer.ObserveFetch(out.venue, kind, len(out.result.Instruments), out.result.Dropped, out.err, time.Since(start))
	}
	return out
}

// Evaluate runs the engine over an existing snapshot.
func (o *Orchestrator) Evaluate(snap domain.Snapshot, params arbitrage.Params) domain.Report {
	params.Kind = snap.Kind
	return o.engine.Evaluate(snap, params)
}

// Run collects a fresh snapshot and evaluates it.
func (o *Orchestrator) Run(ctx context.Context, kind domain.PriceModel, limit int, params arbitrage.Params) domain.Report {
	snap := o.Collect(ctx, kind, limit)
	return o.Evaluate(snap, params)
}
