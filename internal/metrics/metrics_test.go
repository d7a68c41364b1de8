package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ObserveFetch(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ObserveFetch(domain.VenueKalshi, domain.PriceModelBinary, 12, 3, nil, 200*time.Millisecond)
	r.ObserveFetch(domain.VenueKalshi, domain.PriceModelBinary, 0, 0, errors.New("timeout"), time.Second)

	if got := testutil.ToFloat64(r.venueInstruments.WithLabelValues("kalshi", "binary")); got != 0 {
		t.Errorf("expected instruments gauge reset to 0 after failure, got %v", got)
	}
	if got := testutil.ToFloat64(r.recordsDropped.WithLabelValues("kalshi")); got != 3 {
		t.Errorf("expected 3 dropped, got %v", got)
	}
	if got := testutil.ToFloat64(r.fetchFailures.WithLabelValues("kalshi")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := testutil.CollectAndCount(r.fetchDuration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}

func TestRecorder_ObserveReport(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.ObserveReport(domain.Report{Kind: domain.PriceModelFunding, Count: 4}, time.Second)

	if got := testutil.ToFloat64(r.opportunities.WithLabelValues("funding")); got != 4 {
		t.Errorf("expected 4 opportunities, got %v", got)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.ObserveFetch(domain.VenueDydx, domain.PriceModelFunding, 1, 0, nil, time.Second)
	r.ObserveReport(domain.Report{}, time.Second)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
