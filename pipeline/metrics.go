package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts piped blocks by the branch that produced their features.
type Metrics struct {
	builds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featurino",
			Name:      "block_builds_total",
			Help:      "Feature blocks piped, by prefix and by built, memory or loaded source.",
		}, []string{"prefix", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "featurino",
			Name:      "block_duration_seconds",
			Help:      "Time spent producing and merging a feature block.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"prefix"}),
	}
	for _, c := range []prometheus.Collector{m.builds, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(s StepReport) {
	m.builds.WithLabelValues(s.Prefix, string(s.Source)).Inc()
	m.duration.WithLabelValues(s.Prefix).Observe(s.Duration().Seconds())
}
