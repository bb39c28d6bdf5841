package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Console agrupa os coletores do console administrativo.
// Os pacotes internos só conhecem callbacks; o registro acontece aqui.
type Console struct {
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	apiRetries    prometheus.Counter
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	exports       *prometheus.CounterVec
}

// NewConsole cria e registra os coletores no registerer informado
func NewConsole(reg prometheus.Registerer) *Console {
	c := &Console{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betops_api_requests_total", Help: "requisições à API upstream por método e status",
		}, []string{"method", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "betops_api_request_seconds", Help: "latência por tentativa", Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		apiRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betops_api_retries_total", Help: "novas tentativas após falha de rede/5xx",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betops_cache_hits_total", Help: "leituras servidas do cache",
		}, []string{"entity"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betops_cache_misses_total", Help: "leituras que foram ao upstream",
		}, []string{"entity"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betops_cache_invalidations_total", Help: "invalidações por entidade",
		}, []string{"entity"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betops_csv_exports_total", Help: "exportações CSV geradas",
		}, []string{"entity"}),
	}
	reg.MustRegister(c.apiRequests, c.apiLatency, c.apiRetries, c.cacheHits, c.cacheMisses, c.invalidations, c.exports)
	return c
}

func (c *Console) OnRequest(method string, status int, d time.Duration) {
	c.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.apiLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Console) OnRetry() { c.apiRetries.Inc() }

func (c *Console) OnHit(entity string)        { c.cacheHits.WithLabelValues(entity).Inc() }
func (c *Console) OnMiss(entity string)       { c.cacheMisses.WithLabelValues(entity).Inc() }
func (c *Console) OnInvalidate(entity string) { c.invalidations.WithLabelValues(entity).Inc() }
func (c *Console) OnExport(entity string)     { c.exports.WithLabelValues(entity).Inc() }
