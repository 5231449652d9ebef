// Package telemetry provides in-process metrics for staging and commit
// runs. The engine records through the Sink interface so callers can
// inject a Registry, a Prometheus bridge, or nothing at all; there is
// no process-wide mutable state.
package telemetry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives metric updates from the pipeline. Implementations must
// be safe for concurrent use.
type Sink interface {
	Incr(name string, delta int64)
	Gauge(name string, value int64)
	Observe(name string, d time.Duration)
}

// NopSink discards all metrics.
type NopSink struct{}

func (NopSink) Incr(string, int64)            {}
func (NopSink) Gauge(string, int64)           {}
func (NopSink) Observe(string, time.Duration) {}

// Metric names recorded by the engine.
const (
	MetricFilesEnumerated   = "files_enumerated_total"
	MetricFilesStaged       = "files_staged_total"
	MetricWindowsStaged     = "stage_windows_total"
	MetricWindowsFailed     = "stage_windows_failed_total"
	MetricCommitsCreated    = "commits_created_total"
	MetricCommitsBlocked    = "commits_blocked_total"
	MetricStageDuration     = "stage_duration_seconds"
	MetricClassifyDuration  = "classify_duration_seconds"
	MetricCommitDuration    = "commit_duration_seconds"
	MetricCandidateFiles    = "candidate_files"
	MetricValidationBlocked = "validation_blocking_findings"
)

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	value atomic.Int64
}

// NewCounter creates a counter.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Add adds delta to the counter. Negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if c == nil || delta < 0 {
		return
	}
	c.value.Add(delta)
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Get returns the current value.
func (c *Counter) Get() int64 {
	if c == nil {
		return 0
	}
	return c.value.Load()
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	name  string
	value atomic.Int64
}

// NewGauge creates a gauge.
func NewGauge(name string) *Gauge {
	return &Gauge{name: name}
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Set stores value.
func (g *Gauge) Set(value int64) {
	if g == nil {
		return
	}
	g.value.Store(value)
}

// Get returns the current value.
func (g *Gauge) Get() int64 {
	if g == nil {
		return 0
	}
	return g.value.Load()
}

// DefaultBuckets are duration buckets in seconds, sized for local git
// operations rather than network calls.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// Histogram samples duration observations into buckets.
type Histogram struct {
	name    string
	buckets []float64
	counts  []atomic.Int64
	sum     atomic.Int64 // nanoseconds
	count   atomic.Int64
}

// NewHistogram creates a histogram. Nil buckets use DefaultBuckets.
func NewHistogram(name string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return &Histogram{
		name:    name,
		buckets: buckets,
		counts:  make([]atomic.Int64, len(buckets)+1), // +1 for +Inf
	}
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Observe records a value in seconds.
func (h *Histogram) Observe(value float64) {
	if h == nil {
		return
	}
	if value < 0 {
		value = 0
	}
	placed := false
	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i].Add(1)
			placed = true
			break
		}
	}
	if !placed {
		h.counts[len(h.buckets)].Add(1)
	}
	h.sum.Add(int64(value * 1e9))
	h.count.Add(1)
}

// ObserveDuration records a duration observation.
func (h *Histogram) ObserveDuration(d time.Duration) {
	if h == nil {
		return
	}
	h.Observe(d.Seconds())
}

// Count returns the total number of observations.
func (h *Histogram) Count() int64 {
	if h == nil {
		return 0
	}
	return h.count.Load()
}

// Sum returns the sum of observed values in seconds.
func (h *Histogram) Sum() float64 {
	if h == nil {
		return 0
	}
	return float64(h.sum.Load()) / 1e9
}

// Buckets returns the per-bucket counts, the last entry being +Inf.
func (h *Histogram) Buckets() []int64 {
	if h == nil {
		return nil
	}
	out := make([]int64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}

// Registry is a Sink backed by named counters, gauges, and histograms.
// Counters are created on first Incr, gauges on first Gauge, histograms
// on first Observe.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// Incr implements Sink.
func (r *Registry) Incr(name string, delta int64) {
	if r == nil {
		return
	}
	r.counter(name).Add(delta)
}

// Gauge implements Sink.
func (r *Registry) Gauge(name string, value int64) {
	if r == nil {
		return
	}
	r.gauge(name).Set(value)
}

// Observe implements Sink.
func (r *Registry) Observe(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.histogram(name).ObserveDuration(d)
}

func (r *Registry) counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = NewCounter(name)
		r.counters[name] = c
	}
	return c
}

func (r *Registry) gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[name]
	if !ok {
		g = NewGauge(name)
		r.gauges[name] = g
	}
	return g
}

func (r *Registry) histogram(name string) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.histograms[name]
	if !ok {
		h = NewHistogram(name, nil)
		r.histograms[name] = h
	}
	return h
}

// CounterValue returns the current value of a counter, 0 if absent.
func (r *Registry) CounterValue(name string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name].Get()
}

// GaugeValue returns the current value of a gauge, 0 if absent.
func (r *Registry) GaugeValue(name string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gauges[name].Get()
}

// HistogramCount returns the observation count of a histogram, 0 if absent.
func (r *Registry) HistogramCount(name string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.histograms[name].Count()
}

// Snapshot returns a sorted, human-readable dump of all metrics.
func (r *Registry) Snapshot() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []string
	for name, c := range r.counters {
		lines = append(lines, fmt.Sprintf("counter %s = %d", name, c.Get()))
	}
	for name, g := range r.gauges {
		lines = append(lines, fmt.Sprintf("gauge %s = %d", name, g.Get()))
	}
	for name, h := range r.histograms {
		lines = append(lines, fmt.Sprintf("histogram %s count=%d sum=%.4fs", name, h.Count(), h.Sum()))
	}
	sort.Strings(lines)
	return lines
}
