// Package metrics exposes engine counters for Prometheus scraping.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the engine's Prometheus metrics. Each collector carries
// its own registry so tests and repeated construction never collide on
// global registration.
type Collector struct {
	registry *prometheus.Registry

	playerCommands *prometheus.CounterVec
	recoveryEvents *prometheus.CounterVec
	dragDrops      *prometheus.CounterVec
	bakeJobs       *prometheus.CounterVec
	bakeDuration   prometheus.Histogram
	httpRequests   *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		playerCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_player_commands_total",
			Help: "Player commands processed, by command name.",
		}, []string{"command"}),
		recoveryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_recovery_events_total",
			Help: "Session recovery activity: autosave writes, restores, dismissals.",
		}, []string{"event"}),
		dragDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_drag_drops_total",
			Help: "Completed drag interactions, by settle outcome.",
		}, []string{"outcome"}),
		bakeJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_bake_jobs_total",
			Help: "Bake job status transitions.",
		}, []string{"status"}),
		bakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_bake_duration_seconds",
			Help:    "Wall time of finished bake jobs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_http_requests_total",
			Help: "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
	}

	c.registry.MustRegister(
		c.playerCommands,
		c.recoveryEvents,
		c.dragDrops,
		c.bakeJobs,
		c.bakeDuration,
		c.httpRequests,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordPlayerCommand(command string) {
	c.playerCommands.WithLabelValues(command).Inc()
}

func (c *Collector) RecordAutosave() {
	c.recoveryEvents.WithLabelValues("autosave").Inc()
}

func (c *Collector) RecordRestore() {
	c.recoveryEvents.WithLabelValues("restore").Inc()
}

func (c *Collector) RecordDismiss() {
	c.recoveryEvents.WithLabelValues("dismiss").Inc()
}

func (c *Collector) RecordDragDrop(outcome string) {
	c.dragDrops.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordBakeStatus(status string) {
	c.bakeJobs.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveBakeDuration(seconds float64) {
	c.bakeDuration.Observe(seconds)
}

func (c *Collector) RecordHTTPRequest(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveSequenceLen registers a gauge that reports the current clip
// count of the composed sequence each scrape.
func (c *Collector) ObserveSequenceLen(fn func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "engine_sequence_clips",
		Help: "Clips in the active sequence.",
	}, func() float64 {
		return float64(fn())
	}))
}
