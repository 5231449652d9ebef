package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink bridges pipeline metrics into a Prometheus registry.
// Front-ends that already expose an HTTP endpoint can register the
// returned collectors; the engine itself never serves them.
type PrometheusSink struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusSink creates a sink registering metrics under namespace
// (default "stagehand") with the given registerer.
func NewPrometheusSink(reg prometheus.Registerer, namespace string) *PrometheusSink {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "stagehand"
	}
	return &PrometheusSink{
		registerer: reg,
		namespace:  namespace,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Incr implements Sink.
func (s *PrometheusSink) Incr(name string, delta int64) {
	if s == nil || delta < 0 {
		return
	}
	s.counter(name).Add(float64(delta))
}

// Gauge implements Sink.
func (s *PrometheusSink) Gauge(name string, value int64) {
	if s == nil {
		return
	}
	s.gauge(name).Set(float64(value))
}

// Observe implements Sink.
func (s *PrometheusSink) Observe(name string, d time.Duration) {
	if s == nil {
		return
	}
	s.histogram(name).Observe(d.Seconds())
}

func (s *PrometheusSink) counter(name string) prometheus.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      name,
		})
		s.registerer.MustRegister(c)
		s.counters[name] = c
	}
	return c
}

func (s *PrometheusSink) gauge(name string) prometheus.Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      name,
		})
		s.registerer.MustRegister(g)
		s.gauges[name] = g
	}
	return g
}

func (s *PrometheusSink) histogram(name string) prometheus.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      name,
			Buckets:   DefaultBuckets,
		})
		s.registerer.MustRegister(h)
		s.histograms[name] = h
	}
	return h
}
