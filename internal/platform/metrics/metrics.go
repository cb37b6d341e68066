package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Methods are safe
// to call on a nil *Metrics so components can run without instrumentation.
type Metrics struct {
	GeocodeLookups        *prometheus.CounterVec
	GeocodeLatency        prometheus.Histogram
	GeocodeCache          *prometheus.CounterVec
	EnrichmentEvents      *prometheus.CounterVec
	SalespeopleCreated    prometheus.Counter
	SalespeopleDeleted    prometheus.Counter
	AccountRejections     *prometheus.CounterVec
	RelayPublished        prometheus.Counter
	RelayErrors           prometheus.Counter
	ChangeEventsConsumed  *prometheus.CounterVec
	HTTPRequestDurationMs *prometheus.HistogramVec
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GeocodeLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_geocode_lookups_total",
			Help: "Geocode lookups by outcome (ok, status_failure, transport_failure)",
		}, []string{"outcome"}),
		GeocodeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prospector_geocode_lookup_duration_seconds",
			Help:    "Duration of outbound geocode lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_geocode_cache_total",
			Help: "Geocode cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		EnrichmentEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_enrichment_events_total",
			Help: "Change events handled by the enrichment pipeline by collection and outcome",
		}, []string{"collection", "outcome"}),
		SalespeopleCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "prospector_salespeople_created_total",
			Help: "Total number of salesperson accounts created",
		}),
		SalespeopleDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "prospector_salespeople_deleted_total",
			Help: "Total number of salesperson accounts deleted",
		}),
		AccountRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_account_rejections_total",
			Help: "Rejected account lifecycle requests by operation and code",
		}, []string{"operation", "code"}),
		RelayPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "prospector_relay_published_total",
			Help: "Document change rows published to Kafka",
		}),
		RelayErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "prospector_relay_errors_total",
			Help: "Failed relay iterations",
		}),
		ChangeEventsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_change_events_consumed_total",
			Help: "Change events consumed by result (handled, failed, undecodable)",
		}, []string{"result"}),
		HTTPRequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prospector_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveGeocodeLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GeocodeLookups.WithLabelValues(outcome).Inc()
	m.GeocodeLatency.Observe(d.Seconds())
}

func (m *Metrics) IncGeocodeCache(result string) {
	if m == nil {
		return
	}
	m.GeocodeCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEnrichmentEvent(collection, outcome string) {
	if m == nil {
		return
	}
	m.EnrichmentEvents.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) IncSalespeopleCreated() {
	if m == nil {
		return
	}
	m.SalespeopleCreated.Inc()
}

func (m *Metrics) IncSalespeopleDeleted() {
	if m == nil {
		return
	}
	m.SalespeopleDeleted.Inc()
}

func (m *Metrics) IncAccountRejection(operation, code string) {
	if m == nil {
		return
	}
	m.AccountRejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) AddRelayPublished(n int) {
	if m == nil {
		return
	}
	m.RelayPublished.Add(float64(n))
}

func (m *Metrics) IncRelayErrors() {
	if m == nil {
		return
	}
	m.RelayErrors.Inc()
}

func (m *Metrics) IncChangeEventsConsumed(result string) {
	if m == nil {
		return
	}
	m.ChangeEventsConsumed.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDurationMs.WithLabelValues(method, route, status).Observe(float64(d.Microseconds()) / 1000.0)
}
