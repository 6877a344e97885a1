package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PollCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_poll_cycles_total",
			Help: "Total number of poll cycles started",
		},
	)

	PollCyclesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_poll_cycles_failed_total",
			Help: "Total number of poll cycles that failed to fetch orders",
		},
	)

	OrdersFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_orders_fetched_total",
			Help: "Total number of orders fetched from the upstream",
		},
	)

	OrdersNewTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_orders_new_total",
			Help: "Total number of newly detected orders",
		},
	)

	WebhookEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_webhook_events_total",
			Help: "Total number of webhook deliveries received",
		},
	)

	WebhookEventsInvalid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbridge_webhook_events_invalid_total",
			Help: "Total number of webhook deliveries rejected as malformed",
		},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderbridge_fetch_duration_seconds",
			Help:    "Duration of upstream order fetches",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry. Call once
// from main.
func Register() {
	prometheus.MustRegister(PollCyclesTotal)
	prometheus.MustRegister(PollCyclesFailed)
	prometheus.MustRegister(OrdersFetchedTotal)
	prometheus.MustRegister(OrdersNewTotal)
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(WebhookEventsInvalid)
	prometheus.MustRegister(FetchDuration)
}
