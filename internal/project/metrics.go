package project

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Mutation results recorded on the mutations counter.
const (
	resultOK           = "ok"
	resultInvalid      = "invalid"
	resultDuplicate    = "duplicate"
	resultNotFound     = "not_found"
	resultStorageError = "storage_error"
)

// Metrics holds Prometheus metrics for the project service.
type Metrics struct {
	// Projects is the number of projects held in memory.
	Projects prometheus.Gauge

	// MutationsTotal counts create/update/delete calls by outcome.
	MutationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics once per process.
//
// Metrics:
//   - projreg_projects - projects currently in the registry
//   - projreg_project_mutations_total{op,result} - mutations by outcome
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			Projects: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "projreg_projects",
				Help: "Number of projects in the registry",
			}),
			MutationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projreg_project_mutations_total",
					Help: "Total project mutations by operation and result",
				},
				[]string{"op", "result"}, // op: create, update, delete
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) record(op, result string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setProjects(n int) {
	if m == nil {
		return
	}
	m.Projects.Set(float64(n))
}
