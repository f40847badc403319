package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// HTTPRequestsTotal counts HTTP requests by method and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// HTTPRequestDuration records HTTP request duration in seconds by method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// AuthDecisionsTotal counts request authentication outcomes
	// (authenticated, anonymous, skipped, rejected, error, denied).
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_decisions_total",
			Help: "Request authentication outcomes",
		},
		[]string{"outcome"},
	)

	// OrderEmailsTotal counts order-confirmation emails by result.
	OrderEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_emails_total",
			Help: "Order confirmation emails",
		},
		[]string{"result"},
	)
)

// Auth outcome labels
const (
	AuthAuthenticated = "authenticated"
	AuthAnonymous     = "anonymous"
	AuthSkipped       = "skipped"
	AuthRejected      = "rejected"
	AuthError         = "error"
	AuthDenied        = "denied"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthDecisionsTotal,
		OrderEmailsTotal,
	)
}
