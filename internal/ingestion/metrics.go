// Package ingestion — metrics.go registers the Prometheus metrics emitted by
// the startup ingestion pipeline.
package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters owned by the ingestion pipeline.
// A fresh instance is registered per registry so unit tests stay hermetic.
type Metrics struct {
	// filesLoaded counts documents read successfully at startup.
	filesLoaded prometheus.Counter

	// filesSkipped counts documents that could not be read and were skipped.
	filesSkipped prometheus.Counter

	// chunksEmbedded counts chunks that received an embedding and entered
	// the store.
	chunksEmbedded prometheus.Counter

	// chunksFailed counts chunks excluded from the store after an embedding
	// failure.
	chunksFailed prometheus.Counter
}

// NewMetrics registers the ingestion metrics against reg and returns the
// populated Metrics. promauto.With(reg) registers into the provided registry
// rather than the global default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		filesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "ingestion",
			Name:      "files_loaded_total",
			Help:      "Number of documents read successfully during startup ingestion.",
		}),
		filesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "ingestion",
			Name:      "files_skipped_total",
			Help:      "Number of unreadable documents skipped during startup ingestion.",
		}),
		chunksEmbedded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "ingestion",
			Name:      "chunks_embedded_total",
			Help:      "Number of chunks embedded and inserted into the store.",
		}),
		chunksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "ingestion",
			Name:      "chunks_failed_total",
			Help:      "Number of chunks excluded from the store after embedding failures.",
		}),
	}
}
