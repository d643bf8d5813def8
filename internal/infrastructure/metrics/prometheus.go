package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const namespace = "news_collector"

// Collector exports pipeline counters on a private registry.
type Collector struct {
	registry   *prometheus.Registry
	sources    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.CounterVec
	inserted   prometheus.Counter
	dates      *prometheus.CounterVec
}

var _ ports.Metrics = (*Collector)(nil)

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_total",
			Help:      "Sources processed, by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Wall time spent on one source.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Listing candidates seen at each stage.",
		}, []string{"stage"}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_inserted_total",
			Help:      "Articles newly stored.",
		}),
		dates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_resolved_total",
			Help:      "Publish dates resolved, by provenance and strategy.",
		}, []string{"source", "strategy"}),
	}

	c.registry.MustRegister(
		c.sources,
		c.duration,
		c.candidates,
		c.inserted,
		c.dates,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) SourceFinished(status domain.RunStatus, elapsed time.Duration) {
	c.sources.WithLabelValues(string(status)).Inc()
	c.duration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (c *Collector) CandidatesSeen(stage string, n int) {
	if n <= 0 {
		return
	}
	c.candidates.WithLabelValues(stage).Add(float64(n))
}

func (c *Collector) ArticleInserted() {
	c.inserted.Inc()
}

func (c *Collector) DateResolved(source domain.DateSource, strategy string) {
	c.dates.WithLabelValues(string(source), strategy).Inc()
}

// Handler serves the registry in the text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
