package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeService struct {
	lastQuery service.Query
	report    domain.Report
	latestErr error
	snap      domain.Snapshot
	err       error
}

func (f *fakeService) Evaluate(_ context.Context, q service.Query) (domain.Report, error) {
	f.lastQuery = q
	return f.report, f.err
}

func (f *fakeService) Latest(_ context.Context, kind domain.PriceModel) (domain.Report, error) {
	if f.latestErr != nil {
		return domain.Report{}, f.latestErr
	}
	return domain.Report{Kind: kind}, nil
}

func (f *fakeService) Markets(_ context.Context, kind domain.PriceModel, _ bool) (domain.Snapshot, error) {
	if f.err != nil {
		return domain.Snapshot{}, f.err
	}
	s := f.snap
	s.Kind = kind
	return s, nil
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestArbHandler_ParsesQuery(t *testing.T) {
	svc := &fakeService{report: domain.Report{Kind: domain.PriceModelFunding, Count: 1}}
	h := NewArbHandler(svc, testLogger())

	rec := serve(h.Evaluate, "/api/arbitrage?kind=funding&limit=500&min_return=0.5&similarity=0.8&fresh=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	q := svc.lastQuery
	if q.Kind != domain.PriceModelFunding || q.Limit != MaxLimit || q.MinReturn == nil || *q.MinReturn != 0.5 || q.Similarity != 0.8 || !q.Fresh {
		t.Errorf("unexpected query %+v", q)
	}

	var report domain.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("expected JSON report, got %v", err)
	}
	if report.Count != 1 {
		t.Errorf("expected count 1, got %d", report.Count)
	}
}

func TestArbHandler_Defaults(t *testing.T) {
	svc := &fakeService{}
	rec := serve(NewArbHandler(svc, testLogger()).Evaluate, "/api/arbitrage")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	q := svc.lastQuery
	if q.Kind != domain.PriceModelBinary || q.Limit != 0 || q.MinReturn != nil || q.Similarity != 0 || q.Fresh {
		t.Errorf("expected defaults, got %+v", q)
	}
}

func TestArbHandler_BadParams(t *testing.T) {
	h := NewArbHandler(&fakeService{}, testLogger())
	for _, target := range []string{
		"/api/arbitrage?kind=options",
		"/api/arbitrage?limit=abc",
		"/api/arbitrage?limit=-1",
		"/api/arbitrage?min_return=NaN",
		"/api/arbitrage?similarity=0",
		"/api/arbitrage?similarity=1.5",
		"/api/arbitrage?fresh=maybe",
	} {
		if rec := serve(h.Evaluate, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestArbHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidParams, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewArbHandler(&fakeService{latestErr: tt.err}, testLogger())
		if rec := serve(h.Latest, "/api/arbitrage/latest?kind=binary"); rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestMarketHandler_ListMarkets(t *testing.T) {
	inst, _ := domain.NewBinaryInstrument(domain.VenueKalshi, "K1", "Will it rain", 0.4, 0.6, domain.InstrumentMeta{})
	svc := &fakeService{snap: domain.Snapshot{
		Instruments: map[domain.Venue][]domain.NormalizedInstrument{
			domain.VenueKalshi:     {inst},
			domain.VenuePolymarket: {},
		},
		Errors: map[domain.Venue]string{domain.VenuePolymarket: "timeout"},
	}}

	rec := serve(NewMarketHandler(svc, testLogger()).ListMarkets, "/api/markets?kind=binary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body marketsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || body.VenueCounts[domain.VenuePolymarket] != 0 || body.Errors[domain.VenuePolymarket] != "timeout" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestMarketHandler_FundingRates(t *testing.T) {
	btcD, _ := domain.NewFundingInstrument(domain.VenueDydx, "BTC-USD", "BTC-USD", 0.0003, domain.InstrumentMeta{})
	btcH, _ := domain.NewFundingInstrument(domain.VenueHyperliquid, "BTC", "BTC", 0.0001, domain.InstrumentMeta{})
	ethH, _ := domain.NewFundingInstrument(domain.VenueHyperliquid, "ETH", "ETH", 0.0002, domain.InstrumentMeta{})
	snap := domain.Snapshot{Instruments: map[domain.Venue][]domain.NormalizedInstrument{
		domain.VenueDydx:        {btcD},
		domain.VenueHyperliquid: {btcH, ethH},
	}}

	rows := fundingTable(snap)
	if len(rows) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(rows))
	}
	if rows[0].Symbol != "BTC" || len(rows[0].Rates) != 2 || math.Abs(rows[0].Spread-0.0002) > 1e-12 {
		t.Errorf("expected BTC first with spread 0.0002, got %+v", rows[0])
	}
	if rows[1].Symbol != "ETH" || rows[1].Spread != 0 {
		t.Errorf("expected single-venue ETH with zero spread, got %+v", rows[1])
	}

	rec := serve(NewMarketHandler(&fakeService{snap: snap}, testLogger()).FundingRates, "/api/funding-rates")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		status string
		redis  string
	}{
		{"no redis", nil, "ok", "disabled"},
		{"redis ok", fakePinger{}, "ok", "ok"},
		{"redis down", fakePinger{err: errors.New("refused")}, "degraded", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pinger, []domain.PriceModel{domain.PriceModelBinary}, testLogger())
			rec := serve(h.HealthCheck, "/api/health")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var body map[string]any
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["status"] != tt.status || body["redis"] != tt.redis {
				t.Errorf("expected %s/%s, got %v/%v", tt.status, tt.redis, body["status"], body["redis"])
			}
		})
	}
}
