package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the instrumentation surface the rest of the bot writes to.
type Recorder interface {
	SessionOpened()
	SessionClosed(duration time.Duration)
	SaveSucceeded(duration time.Duration)
	SaveFailed()
	RoleSynced()
	NameCacheHit()
	NameCacheMiss()
}

// Provider implements Recorder on a private prometheus registry, so tests
// and repeated construction never collide on the default registry.
type Provider struct {
	registry        *prometheus.Registry
	sessionsOpened  prometheus.Counter
	sessionsClosed  prometheus.Counter
	sessionDuration prometheus.Histogram
	saveDuration    prometheus.Histogram
	saveFailures    prometheus.Counter
	roleSyncs       prometheus.Counter
	nameCacheHits   prometheus.Counter
	nameCacheMisses prometheus.Counter
}

func NewProvider() *Provider {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Provider{
		registry: registry,
		sessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_sessions_opened_total",
			Help: "Voice study sessions opened",
		}),
		sessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_sessions_closed_total",
			Help: "Voice study sessions closed and folded into totals",
		}),
		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "estudo_session_duration_seconds",
			Help:    "Duration of closed study sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "estudo_save_duration_seconds",
			Help:    "Duration of totals persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_save_failures_total",
			Help: "Failed totals persistence attempts",
		}),
		roleSyncs: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_role_syncs_total",
			Help: "Role mutations applied by tier re-evaluation",
		}),
		nameCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_name_cache_hits_total",
			Help: "Display-name cache hits",
		}),
		nameCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "estudo_name_cache_misses_total",
			Help: "Display-name cache misses",
		}),
	}
}

func (p *Provider) SessionOpened() { p.sessionsOpened.Inc() }

func (p *Provider) SessionClosed(duration time.Duration) {
	p.sessionsClosed.Inc()
	p.sessionDuration.Observe(duration.Seconds())
}

func (p *Provider) SaveSucceeded(duration time.Duration) { p.saveDuration.Observe(duration.Seconds()) }
func (p *Provider) SaveFailed()                          { p.saveFailures.Inc() }
func (p *Provider) RoleSynced()                          { p.roleSyncs.Inc() }
func (p *Provider) NameCacheHit()                        { p.nameCacheHits.Inc() }
func (p *Provider) NameCacheMiss()                       { p.nameCacheMisses.Inc() }

// Handler exposes the registry for a /metrics listener.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Noop is the Recorder used when metrics are disabled.
type Noop struct{}

func (Noop) SessionOpened()              {}
func (Noop) SessionClosed(time.Duration) {}
func (Noop) SaveSucceeded(time.Duration) {}
func (Noop) SaveFailed()                 {}
func (Noop) RoleSynced()                 {}
func (Noop) NameCacheHit()               {}
func (Noop) NameCacheMiss()              {}
