package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantag_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vantag_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantag_chat_turns_total",
			Help: "Chat turns by outcome (final_answer, tool_calls, quota_denied, error).",
		},
		[]string{"outcome"},
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantag_quota_denials_total",
			Help: "Quota denials by limit type.",
		},
		[]string{"limit_type"},
	)

	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vantag_model_call_duration_seconds",
			Help:    "Model provider call duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	RatesRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantag_rates_refresh_total",
			Help: "Exchange rate refresh attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChatTurnsTotal,
		QuotaDenialsTotal,
		ModelCallDuration,
		RatesRefreshTotal,
	)
}
