package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

//nolint:gochecknoglobals
var reg = prometheus.NewRegistry()

// RegisterMetric registers prometheus collector
func RegisterMetric(c prometheus.Collector) {
	_ = reg.Register(c)
}

// StartCollection registers the process- and Go-runtime collectors
// against the private registry. The full proxy also hooked its event
// bus into this call to publish cache/blocking-list metrics; that
// event bus was dropped along with the rest of the resolver pipeline,
// so this now only carries the two stdlib-adjacent collectors.
func StartCollection() {
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = reg.Register(collectors.NewGoCollector())
}
