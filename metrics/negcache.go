package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NegCacheMetrics holds the Prometheus collectors for the aggressive
// negative cache, mirroring the resolver/dnssec_validator.go metrics
// initialization pattern.
type NegCacheMetrics struct {
	bytesInUse prometheus.Gauge
	ingests    prometheus.Counter
	syntheses  *prometheus.CounterVec
	evictions  prometheus.Counter
}

// NewNegCacheMetrics creates and registers the negative cache's
// Prometheus collectors.
func NewNegCacheMetrics() *NegCacheMetrics {
	m := &NegCacheMetrics{
		bytesInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "blocky_negcache_bytes_in_use",
				Help: "Bytes currently held by the aggressive negative cache",
			},
		),
		ingests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocky_negcache_ingest_total",
				Help: "Number of denial records ingested into the negative cache",
			},
		),
		syntheses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blocky_negcache_synthesis_total",
				Help: "Number of synthesized answers by outcome",
			},
			[]string{"outcome"},
		),
		evictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocky_negcache_evictions_total",
				Help: "Number of denial nodes evicted by the LRU governor",
			},
		),
	}

	RegisterMetric(m.bytesInUse)
	RegisterMetric(m.ingests)
	RegisterMetric(m.syntheses)
	RegisterMetric(m.evictions)

	return m
}

// SetBytesInUse records the cache's current byte occupancy.
func (m *NegCacheMetrics) SetBytesInUse(n int) {
	m.bytesInUse.Set(float64(n))
}

// AddIngested increments the ingest counter by delta records.
func (m *NegCacheMetrics) AddIngested(delta int) {
	m.ingests.Add(float64(delta))
}

// IncSynthesis records one synthesized answer with the given outcome
// ("nxdomain" or "nodata").
func (m *NegCacheMetrics) IncSynthesis(outcome string) {
	m.syntheses.WithLabelValues(outcome).Inc()
}

// AddEvictions increments the eviction counter by delta nodes.
func (m *NegCacheMetrics) AddEvictions(delta int) {
	m.evictions.Add(float64(delta))
}
