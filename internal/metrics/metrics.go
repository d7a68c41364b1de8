// Package metrics exposes scan health as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements pipeline.Observer and records scan outcomes. A nil
// *Recorder records nothing.
type Recorder struct {
	venueInstruments *prometheus.GaugeVec
	fetchFailures    *prometheus.CounterVec
	recordsDropped   *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	opportunities    *prometheus.GaugeVec
	scanDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		venueInstruments: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossarb_venue_instruments",
				Help: "Instruments returned by the last fetch of a venue",
			},
			[]string{"venue", "kind"},
		),
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossarb_venue_fetch_failures_total",
				Help: "Venue fetches that failed or timed out",
			},
			[]string{"venue"},
		),
		recordsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossarb_records_dropped_total",
				Help: "Venue records dropped during normalization",
			},
			[]string{"venue"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossarb_fetch_duration_seconds",
				Help:    "Duration of venue fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"venue"},
		),
		opportunities: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossarb_opportunities",
				Help: "Opportunities in the last report",
			},
			[]string{"kind"},
		),
		scanDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossarb_scan_duration_seconds",
				Help:    "Duration of a full collect and evaluate cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// ObserveFetch records one venue fetch. A failed fetch sets the venue's
// instrument gauge to zero.
func (r *Recorder) ObserveFetch(venue domain.Venue, kind domain.PriceModel, count, dropped int, err error, d time.Duration) {
	if r == nil {
		return
	}
	v := string(venue)
	r.venueInstruments.WithLabelValues(v, string(kind)).Set(float64(count))
	r.fetchDuration.WithLabelValues(v).Observe(d.Seconds())
	if dropped > 0 {
		r.recordsDropped.WithLabelValues(v).Add(float64(dropped))
	}
	if err != nil {
		r.fetchFailures.WithLabelValues(v).Inc()
	}
}

// ObserveReport records the outcome of a scan.
func (r *Recorder) ObserveReport(report domain.Report, d time.Duration) {
	if r == nil {
		return
	}
	k := string(report.Kind)
	r.opportunities.WithLabelValues(k).Set(float64(report.Count))
	r.scanDuration.WithLabelValues(k).Observe(d.Seconds())
}
