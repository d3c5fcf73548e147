// Package metrics records allocation outcomes for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// Recorder receives operation outcomes from the services.
type Recorder interface {
	// Observe records one operation. kind is empty on success.
	Observe(operation string, kind models.ErrorKind, duration time.Duration)
	ChicksAllocated(n int)
	FeedBagsAllocated(n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Observe(string, models.ErrorKind, time.Duration) {}
func (Nop) ChicksAllocated(int)                             {}
func (Nop) FeedBagsAllocated(int)                           {}

var _ Recorder = (*Prometheus)(nil)

// Prometheus exports counters and a latency histogram on its own registry.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	chicks     prometheus.Counter
	feedBags   prometheus.Counter
}

// NewPrometheus builds the collectors and registers them together with the Go
// runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xchicks",
			Name:      "operations_total",
			Help:      "Core operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xchicks",
			Name:      "operation_duration_seconds",
			Help:      "Core operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		chicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xchicks",
			Name:      "chicks_allocated_total",
			Help:      "Chicks deducted from stock by approvals.",
		}),
		feedBags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xchicks",
			Name:      "feed_bags_allocated_total",
			Help:      "Feed bags deducted from stock by approvals.",
		}),
	}
	p.registry.MustRegister(
		p.operations,
		p.latency,
		p.chicks,
		p.feedBags,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Observe implements Recorder.
func (p *Prometheus) Observe(operation string, kind models.ErrorKind, duration time.Duration) {
	outcome := "success"
	if kind != models.KindNone {
		outcome = string(kind)
	}
	p.operations.WithLabelValues(operation, outcome).Inc()
	p.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ChicksAllocated implements Recorder.
func (p *Prometheus) ChicksAllocated(n int) {
	p.chicks.Add(float64(n))
}

// FeedBagsAllocated implements Recorder.
func (p *Prometheus) FeedBagsAllocated(n int) {
	p.feedBags.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
