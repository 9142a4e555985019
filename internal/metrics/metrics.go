package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PagesInFlight   prometheus.Gauge

	SearchesTotal  *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec

	RecordsTotal  prometheus.Counter
	WarningsTotal *prometheus.CounterVec

	ArchivedRecordsTotal prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer - для тестов, чтобы не ловить duplicate registration
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nli_search_requests_total",
				Help: "Total number of HTTP requests sent to the NLI API",
			},
			[]string{"kind", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nli_search_request_duration_seconds",
				Help:    "NLI API request duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		),
		PagesInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "nli_search_pages_in_flight",
				Help: "Number of result pages currently being fetched",
			},
		),

		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nli_search_searches_total",
				Help: "Total number of searches",
			},
			[]string{"mode", "status"},
		),
		SearchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nli_search_search_duration_seconds",
				Help:    "End to end search duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),

		RecordsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "nli_search_records_total",
				Help: "Total number of records parsed from API responses",
			},
		),
		WarningsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nli_search_warnings_total",
				Help: "Total number of non-fatal diagnostics",
			},
			[]string{"kind"},
		),

		ArchivedRecordsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "nli_search_archived_records_total",
				Help: "Total number of records written to the archive",
			},
		),
	}
}

func (m *Metrics) RecordRequest(kind, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(kind, status).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearch(mode, status string, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(mode, status).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *Metrics) AddRecords(n int) {
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) RecordWarning(kind string) {
	m.WarningsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddArchived(n int) {
	m.ArchivedRecordsTotal.Add(float64(n))
}

func (m *Metrics) IncPagesInFlight() {
	m.PagesInFlight.Inc()
}

func (m *Metrics) DecPagesInFlight() {
	m.PagesInFlight.Dec()
}
