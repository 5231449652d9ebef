package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterIgnoresNegativeDeltas(t *testing.T) {
	c := NewCounter("test")
	c.Inc()
	c.Add(5)
	c.Add(-3)
	assert.Equal(t, int64(6), c.Get())
}

func TestHistogramBucketsAndSum(t *testing.T) {
	h := NewHistogram("test", []float64{0.01, 0.1, 1.0})

	h.Observe(0.005) // bucket 0
	h.Observe(0.05)  // bucket 1
	h.Observe(0.5)   // bucket 2
	h.Observe(5.0)   // +Inf

	assert.Equal(t, []int64{1, 1, 1, 1}, h.Buckets())
	assert.Equal(t, int64(4), h.Count())
	assert.InDelta(t, 5.555, h.Sum(), 0.001)
}

func TestRegistrySinkConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Incr(MetricFilesStaged, 1)
				r.Observe(MetricStageDuration, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), r.CounterValue(MetricFilesStaged))
	assert.Equal(t, int64(800), r.HistogramCount(MetricStageDuration))
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.Incr(MetricCommitsCreated, 1)
	r.Gauge(MetricCandidateFiles, 42)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Contains(t, snap[0], MetricCommitsCreated)
	assert.Contains(t, snap[1], MetricCandidateFiles)
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.Incr("x", 1)
	r.Gauge("x", 1)
	r.Observe("x", time.Second)
	assert.Equal(t, int64(0), r.CounterValue("x"))
}

func TestPrometheusSinkRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, "test")

	sink.Incr(MetricFilesStaged, 3)
	sink.Incr(MetricFilesStaged, 2)
	sink.Gauge(MetricCandidateFiles, 7)
	sink.Observe(MetricStageDuration, 50*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 3)

	byName := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				byName[fam.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byName[fam.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				byName[fam.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, float64(5), byName["test_"+MetricFilesStaged])
	assert.Equal(t, float64(7), byName["test_"+MetricCandidateFiles])
	assert.Equal(t, float64(1), byName["test_"+MetricStageDuration])
}
