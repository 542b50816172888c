package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	ProviderQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_provider_quotes_total",
			Help: "Provider quote attempts by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	ProviderQuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_provider_quote_duration_seconds",
			Help:    "Provider quote call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider"},
	)

	QuoteFanouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_quote_fanouts_total",
		Help: "Total quote fan-outs dispatched to all providers",
	})

	StaleResultsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_stale_results_discarded_total",
		Help: "Async results dropped because their fingerprint was superseded",
	})

	QuotesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_quotes_expired_total",
		Help: "Selected quotes that crossed the hard expiry window",
	})

	// Execution metrics
	ExecutionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_execution_results_total",
			Help: "Terminal execution outcomes",
		},
		[]string{"status"},
	)

	SubmitRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_submit_retries_total",
		Help: "Execute-endpoint submissions retried after transient failures",
	})

	PollingAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_polling_attempts",
		Help:    "Signature status poll attempts consumed per confirmation",
		Buckets: []float64{1, 2, 3, 5, 10, 15, 20, 30},
	})

	// Balance metrics
	BalanceRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_balance_refreshes_total",
			Help: "Balance snapshot refreshes by trigger",
		},
		[]string{"trigger"},
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_active_sessions",
		Help: "Currently tracked quote sessions",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
