package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "invoice_intake"

// Pipeline holds the ingestion counters. A nil *Pipeline records nothing.
type Pipeline struct {
	documents      *prometheus.CounterVec
	insertFailures prometheus.Counter
	duration       *prometheus.HistogramVec
	confidence     prometheus.Histogram
}

// NewPipeline registers the pipeline collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Processed documents by outcome and kind.",
		}, []string{"outcome", "kind"}),
		insertFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_insert_failures_total",
			Help:      "Rows appended to the CSV log whose table insert failed.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Wall time spent on one document.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		confidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "text_confidence",
			Help:      "Heuristic invoice-likeness of acquired text.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Pipeline) ObserveDocument(outcome, kind string, d time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.documents.WithLabelValues(outcome, kind).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Pipeline) InsertFailed() {
	if m == nil {
		return
	}
	m.insertFailures.Inc()
}

func (m *Pipeline) ObserveConfidence(c float32) {
	if m == nil {
		return
	}
	m.confidence.Observe(float64(c))
}
