package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quote_requests_total",
			Help: "Total number of quote requests sent to the pricing API",
		},
		[]string{"kind", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_quote_duration_seconds",
			Help:    "Quote request latency in seconds, USD reference quotes excluded",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"kind", "bridging"},
	)

	QuoteServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quotes_served_total",
			Help: "Definitive trades returned over HTTP, by routing",
		},
		[]string{"routing"},
	)

	// Query cache metrics
	QueryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_query_cache_hits_total",
		Help: "Total number of quote query cache hits",
	})

	QueryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_query_cache_misses_total",
		Help: "Total number of quote query cache misses",
	})

	SupersededResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_superseded_results_total",
		Help: "Quote results dropped because the input fingerprint changed while in flight",
	})

	// Acceptance metrics
	TradeAcceptance = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_trade_acceptance_total",
			Help: "Outcomes of new-trade acceptance evaluation",
		},
		[]string{"outcome"},
	)

	// Tx building metrics
	SwapTxRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_tx_requests_total",
			Help: "Total number of swap tx and gas info preparations",
		},
		[]string{"routing", "status"},
	)

	SimulationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_simulation_failures_total",
			Help: "Total number of predicted transaction failures",
		},
		[]string{"reason"},
	)

	GasEstimateDiff = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_gas_estimate_diff_ratio",
			Help:    "Shadow strategy fee divided by active strategy fee",
			Buckets: []float64{0.5, 0.8, 0.9, 0.95, 1, 1.05, 1.1, 1.25, 1.5, 2},
		},
		[]string{"strategy"},
	)

	// Step metrics
	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_step_transitions_total",
			Help: "Total number of transaction step status transitions",
		},
		[]string{"type", "status"},
	)

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swap_active_sessions",
		Help: "Number of live swap sessions",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swap_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
		[]string{"path"},
	)
)
