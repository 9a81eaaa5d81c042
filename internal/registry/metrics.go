package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the registry store.
type Metrics struct {
	LoadsTotal          *prometheus.CounterVec
	SavesTotal          *prometheus.CounterVec
	ExternalWritesTotal prometheus.Counter
}

// NewMetrics creates and registers the store metrics once per process.
//
// Metrics:
//   - projreg_registry_loads_total{result} - ok, missing, corrupt, error
//   - projreg_registry_saves_total{result} - ok, invalid, error
//   - projreg_registry_external_writes_total - writes by other processes seen by Watch
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			LoadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projreg_registry_loads_total",
					Help: "Total registry file loads by result",
				},
				[]string{"result"},
			),
			SavesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projreg_registry_saves_total",
					Help: "Total registry file saves by result",
				},
				[]string{"result"},
			),
			ExternalWritesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "projreg_registry_external_writes_total",
				Help: "Registry file changes made by another writer",
			}),
		}
	})
	return globalMetrics
}
