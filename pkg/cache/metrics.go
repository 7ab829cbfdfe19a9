package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks identity cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lol_cache_hits_total",
			Help: "Total number of identity cache hits",
		},
	)

	// CacheMisses tracks identity cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lol_cache_misses_total",
			Help: "Total number of identity cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lol_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
