package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "query_cache_hits_total", Help: "Fresh cache hits"},
		[]string{"cache"},
	)
	cacheFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "query_cache_fetches_total", Help: "Upstream fetches by result"},
		[]string{"cache", "result"},
	)
	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "query_cache_evictions_total", Help: "Entries dropped after the retain window"},
		[]string{"cache"},
	)
)

func init() { prometheus.MustRegister(cacheHits, cacheFetches, cacheEvictions) }
