// Package metrics holds Prometheus instruments that are used across
// adminkit.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminkit_requests_total",
			Help: "Requests handled by the dispatcher, by method and envelope code.",
		}, []string{"method", "code"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adminkit_request_duration_seconds",
			Help:    "Dispatcher latency from route match to body write.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"})

	MiddlewareRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminkit_middleware_rejections_total",
			Help: "Requests short-circuited by a middleware, by middleware name.",
		}, []string{"middleware"})

	PoolOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adminkit_pool_open_conns",
			Help: "Connections currently owned by the pool (idle plus checked out).",
		})

	PoolInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adminkit_pool_in_use_conns",
			Help: "Connections currently checked out.",
		})

	PoolReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adminkit_pool_reaped_total",
			Help: "Cumulative number of idle connections closed by the reaper.",
		})

	PoolAcquireTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adminkit_pool_acquire_timeouts_total",
			Help: "Cumulative number of Acquire calls that gave up waiting.",
		})

	ACLCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adminkit_acl_cache_misses_total",
			Help: "Permission lookups that went to the database.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		MiddlewareRejections,
		PoolOpen,
		PoolInUse,
		PoolReapedTotal,
		PoolAcquireTimeouts,
		ACLCacheMisses,
	)
}
