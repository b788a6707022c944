package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipeline(reg)

	m.ObserveDocument("SAVED", "pdf", 20*time.Millisecond)
	m.ObserveDocument("SAVED", "pdf", 30*time.Millisecond)
	m.ObserveDocument("UNSUPPORTED", "", time.Millisecond)
	m.InsertFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues("SAVED", "pdf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("UNSUPPORTED", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.insertFailures))
}

func TestNilPipelineIsNoop(t *testing.T) {
	var m *Pipeline
	assert.NotPanics(t, func() {
		m.ObserveDocument("SAVED", "png", time.Second)
		m.InsertFailed()
		m.ObserveConfidence(0.5)
	})
}
