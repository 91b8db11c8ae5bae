package javro

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/siegeai/javro/mapper"
	"time"
)

// Metrics counts pipeline runs. A nil *Metrics records nothing.
type Metrics struct {
	Runs          *prometheus.CounterVec
	RemovedFields prometheus.Counter
	Duration      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "javro",
			Name:      "conversions_total",
			Help:      "JSON Schema to Avro conversions by outcome.",
		}, []string{"outcome"}),
		RemovedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "javro",
			Name:      "removed_fields_total",
			Help:      "Fields of a previous Avro version missing from the regenerated one.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "javro",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting one schema, including registry calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Runs, m.RemovedFields, m.Duration)
	return m
}

func (m *Metrics) observe(res *Result, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.Observe(d.Seconds())
	m.Runs.WithLabelValues(outcome(res, err)).Inc()
	if res != nil {
		m.RemovedFields.Add(float64(len(res.Removed)))
	}
}

func outcome(res *Result, err error) string {
	if err != nil {
		if mapper.IsMappingError(err) {
			return "mapping_error"
		}
		return "error"
	}
	switch res.Compatibility {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	}
	return "unchecked"
}
