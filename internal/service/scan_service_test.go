package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCollector struct {
	mu       sync.Mutex
	collects int
	params   []arbitrage.Params
	asOf     time.Time
	opps     []domain.Opportunity
	errs     map[domain.Venue]string
}

func (f *fakeCollector) Collect(_ context.Context, kind domain.PriceModel, _ int) domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collects++
	return domain.Snapshot{Kind: kind, AsOf: f.asOf, Errors: f.errs}
}

func (f *fakeCollector) Evaluate(snap domain.Snapshot, p arbitrage.Params) domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, p)
	opps := append([]domain.Opportunity(nil), f.opps...)
	return domain.Report{
		Kind:          snap.Kind,
		Opportunities: opps,
		Count:         len(opps),
		VenueErrors:   snap.Errors,
		SnapshotAt:    snap.AsOf,
	}
}

func (f *fakeCollector) Venues(domain.PriceModel) []domain.Venue {
	return []domain.Venue{domain.VenueKalshi, domain.VenuePolymarket}
}

func (f *fakeCollector) collectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collects
}

func (f *fakeCollector) lastParams() arbitrage.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[len(f.params)-1]
}

type fakeCache struct {
	mu      sync.Mutex
	reports map[domain.PriceModel]domain.Report
	getErr  error
}

func (c *fakeCache) SetReport(_ context.Context, r domain.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reports == nil {
		c.reports = make(map[domain.PriceModel]domain.Report)
	}
	c.reports[r.Kind] = r
	return nil
}

func (c *fakeCache) GetReport(_ context.Context, kind domain.PriceModel) (domain.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.Report{}, c.getErr
	}
	r, ok := c.reports[kind]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return r, nil
}

type published struct {
	channel string
	typ     string
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(payload, &env)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, published{channel: channel, typ: env.Type})
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

type fixture struct {
	svc      *ScanService
	col      *fakeCollector
	cache    *fakeCache
	bus      *fakeBus
	notifier *fakeNotifier
	now      time.Time
}

func newFixture(cfg ScanConfig) *fixture {
	f := &fixture{
		col:      &fakeCollector{},
		cache:    &fakeCache{},
		bus:      &fakeBus{},
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.col.asOf = f.now
	if cfg.Kinds == nil {
		cfg.Kinds = []domain.PriceModel{domain.PriceModelBinary, domain.PriceModelFunding}
	}
	f.svc = NewScanService(f.col, f.cache, f.bus, f.notifier, nil, cfg, testLogger())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func opp(id string) domain.Opportunity {
	return domain.Opportunity{ID: id, Kind: domain.PriceModelBinary, KeyText: id, ExpectedReturn: 5}
}

func TestScanService_ScanRecordsCachesAndPublishes(t *testing.T) {
	f := newFixture(ScanConfig{
		ResultLimit: 7,
		MinReturn:   map[domain.PriceModel]float64{domain.PriceModelBinary: 1.5},
	})
	f.col.opps = []domain.Opportunity{opp("a"), opp("b")}

	report, err := f.svc.Scan(context.Background(), domain.PriceModelBinary)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Count != 2 {
		t.Errorf("expected 2 opportunities, got %d", report.Count)
	}

	p := f.col.lastParams()
	if p.MinReturn != 1.5 || p.Limit != 7 || !p.AsOf.Equal(f.now) {
		t.Errorf("expected configured defaults, got %+v", p)
	}
	if _, ok := f.cache.reports[domain.PriceModelBinary]; !ok {
		t.Error("expected report to be cached")
	}
	if len(f.bus.msgs) != 2 || f.bus.msgs[0] != (published{domain.ChannelArb, "arb_report"}) || f.bus.msgs[1] != (published{domain.ChannelStatus, "scan_status"}) {
		t.Errorf("unexpected bus messages %+v", f.bus.msgs)
	}
	if got := f.notifier.count("arb_detected"); got != 2 {
		t.Errorf("expected 2 alerts on first scan, got %d", got)
	}
}

func TestScanService_AlertsOnlyNewOpportunities(t *testing.T) {
	f := newFixture(ScanConfig{})
	f.col.opps = []domain.Opportunity{opp("a")}
	_, _ = f.svc.Scan(context.Background(), domain.PriceModelBinary)

	f.col.opps = []domain.Opportunity{opp("a"), opp("c")}
	_, _ = f.svc.Scan(context.Background(), domain.PriceModelBinary)

	if got := f.notifier.count("arb_detected"); got != 2 {
		t.Errorf("expected 1 alert per new opportunity (2 total), got %d", got)
	}
}

func TestScanService_AlertsVenueDownOnce(t *testing.T) {
	f := newFixture(ScanConfig{})
	f.col.errs = map[domain.Venue]string{domain.VenueKalshi: "timeout"}
	_, _ = f.svc.Scan(context.Background(), domain.PriceModelBinary)
	_, _ = f.svc.Scan(context.Background(), domain.PriceModelBinary)

	if got := f.notifier.count("venue_down"); got != 1 {
		t.Errorf("expected 1 venue_down alert, got %d", got)
	}
}

func TestScanService_AlertsCapped(t *testing.T) {
	f := newFixture(ScanConfig{})
	for i := 0; i < maxAlertsPerScan+5; i++ {
		f.col.opps = append(f.col.opps, opp(string(rune('a'+i))))
	}
	_, _ = f.svc.Scan(context.Background(), domain.PriceModelBinary)
	if got := f.notifier.count("arb_detected"); got != maxAlertsPerScan {
		t.Errorf("expected %d alerts, got %d", maxAlertsPerScan, got)
	}
}

func TestScanService_ScanRejectsDisabledKind(t *testing.T) {
	f := newFixture(ScanConfig{Kinds: []domain.PriceModel{domain.PriceModelBinary}})
	_, err := f.svc.Scan(context.Background(), domain.PriceModelFunding)
	if !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestScanService_EvaluateReusesFreshSnapshot(t *testing.T) {
	f := newFixture(ScanConfig{MaxSnapshotAge: time.Minute, ResultLimit: 20})
	ctx := context.Background()

	if _, err := f.svc.Evaluate(ctx, Query{Kind: domain.PriceModelBinary}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.now = f.now.Add(30 * time.Second)
	_, _ = f.svc.Evaluate(ctx, Query{Kind: domain.PriceModelBinary})
	if got := f.col.collectCount(); got != 1 {
		t.Errorf("expected snapshot reuse within max age, got %d collections", got)
	}

	_, _ = f.svc.Evaluate(ctx, Query{Kind: domain.PriceModelBinary, Fresh: true})
	if got := f.col.collectCount(); got != 2 {
		t.Errorf("expected fresh query to collect, got %d collections", got)
	}

	f.now = f.now.Add(2 * time.Minute)
	_, _ = f.svc.Evaluate(ctx, Query{Kind: domain.PriceModelBinary})
	if got := f.col.collectCount(); got != 3 {
		t.Errorf("expected stale snapshot to be replaced, got %d collections", got)
	}
}

func TestScanService_EvaluateOverrides(t *testing.T) {
	f := newFixture(ScanConfig{
		ResultLimit: 20,
		MinReturn:   map[domain.PriceModel]float64{domain.PriceModelBinary: 1},
	})
	zero := 0.0
	_, err := f.svc.Evaluate(context.Background(), Query{
		Kind:       domain.PriceModelBinary,
		MinReturn:  &zero,
		Limit:      3,
		Similarity: 0.9,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	p := f.col.lastParams()
	if p.MinReturn != 0 || p.Limit != 3 || p.SimilarityThreshold != 0.9 {
		t.Errorf("expected query overrides, got %+v", p)
	}
}

func TestScanService_EvaluateInvalidParams(t *testing.T) {
	f := newFixture(ScanConfig{})
	for _, q := range []Query{
		{Kind: "options"},
		{Kind: domain.PriceModelBinary, Similarity: 1.5},
		{Kind: domain.PriceModelBinary, Limit: -1},
	} {
		if _, err := f.svc.Evaluate(context.Background(), q); !errors.Is(err, domain.ErrInvalidParams) {
			t.Errorf("expected ErrInvalidParams for %+v, got %v", q, err)
		}
	}
}

func TestScanService_Latest(t *testing.T) {
	f := newFixture(ScanConfig{})
	ctx := context.Background()

	if _, err := f.svc.Latest(ctx, domain.PriceModelBinary); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound before any scan, got %v", err)
	}

	f.col.opps = []domain.Opportunity{opp("a")}
	_, _ = f.svc.Scan(ctx, domain.PriceModelBinary)

	f.cache.getErr = errors.New("redis down")
	report, err := f.svc.Latest(ctx, domain.PriceModelBinary)
	if err != nil {
		t.Fatalf("expected memory fallback, got %v", err)
	}
	if report.Count != 1 {
		t.Errorf("expected 1 opportunity, got %d", report.Count)
	}
}

func TestScanService_LatestPrefersCache(t *testing.T) {
	f := newFixture(ScanConfig{})
	_ = f.cache.SetReport(context.Background(), domain.Report{Kind: domain.PriceModelFunding, Count: 9})

	report, err := f.svc.Latest(context.Background(), domain.PriceModelFunding)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Count != 9 {
		t.Errorf("expected cached report, got count %d", report.Count)
	}
}

func TestScanService_OptionalDependencies(t *testing.T) {
	col := &fakeCollector{opps: []domain.Opportunity{opp("a")}}
	svc := NewScanService(col, nil, nil, nil, nil, ScanConfig{Kinds: []domain.PriceModel{domain.PriceModelBinary}}, testLogger())

	if _, err := svc.Scan(context.Background(), domain.PriceModelBinary); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Latest(context.Background(), domain.PriceModelBinary); err != nil {
		t.Errorf("expected in-memory report, got %v", err)
	}
}

func TestScanService_RunLoopScansImmediately(t *testing.T) {
	f := newFixture(ScanConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.RunLoop(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for f.col.collectCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected both kinds scanned, got %d collections", f.col.collectCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// slowFetcher blocks until release is closed or its context ends.
type slowFetcher struct {
	venue   domain.Venue
	release <-chan struct{}
}

func (f slowFetcher) Venue() domain.Venue     { return f.venue }
func (f slowFetcher) Kind() domain.PriceModel { return domain.PriceModelBinary }

func (f slowFetcher) Fetch(ctx context.Context, _ int) (domain.FetchResult, error) {
	select {
	case <-f.release:
		return domain.FetchResult{}, nil
	case <-ctx.Done():
		return domain.FetchResult{}, ctx.Err()
	}
}

func TestScanService_CancelledCallerDoesNotFailSharedCollection(t *testing.T) {
	release := make(chan struct{})
	orch := pipeline.NewOrchestrator(
		[]pipeline.Fetcher{
			slowFetcher{venue: domain.VenueKalshi, release: release},
			slowFetcher{venue: domain.VenuePolymarket, release: release},
		},
		arbitrage.NewEngine(arbitrage.DefaultEngineConfig()),
		pipeline.Config{FetchTimeout: 5 * time.Second, Deadline: 5 * time.Second},
		nil,
		testLogger(),
	)
	svc := NewScanService(orch, nil, nil, nil, nil, ScanConfig{
		Kinds:          []domain.PriceModel{domain.PriceModelBinary},
		MaxSnapshotAge: time.Minute,
	}, testLogger())

	reqCtx, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()
	evalErr := make(chan error, 1)
	go func() {
		_, err := svc.Evaluate(reqCtx, Query{Kind: domain.PriceModelBinary})
		evalErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type scanResult struct {
		report domain.Report
		err    error
	}
	scanned := make(chan scanResult, 1)
	go func() {
		report, err := svc.Scan(context.Background(), domain.PriceModelBinary)
		scanned <- scanResult{report, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelReq()
	select {
	case err := <-evalErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected cancelled request to return context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected cancelled request to stop waiting")
	}

	close(release)
	var res scanResult
	select {
	case res = <-scanned:
	case <-time.After(2 * time.Second):
		t.Fatal("expected scan to complete")
	}
	if res.err != nil {
		t.Fatalf("expected no error, got %v", res.err)
	}
	if len(res.report.VenueErrors) != 0 {
		t.Errorf("expected no venue errors in scan, got %v", res.report.VenueErrors)
	}

	snap, err := svc.Markets(context.Background(), domain.PriceModelBinary, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(snap.Errors) != 0 {
		t.Errorf("expected stored snapshot to be healthy, got %v", snap.Errors)
	}
}

func TestScanService_ScanReturnsCallerCancellation(t *testing.T) {
	f := newFixture(ScanConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.Scan(ctx, domain.PriceModelBinary); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := f.svc.Latest(context.Background(), domain.PriceModelBinary); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no report to be recorded, got %v", err)
	}
}
