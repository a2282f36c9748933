// metrics.go exposes Prometheus counters for the processing pipeline.

package faultline

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_events_captured_total",
			Help: "Total number of events entering the pipeline, by capture source",
		},
		[]string{"source"},
	)

	eventsThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_events_throttled_total",
			Help: "Total number of events suppressed by the throttle gate",
		},
	)

	eventsFiltered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_events_filtered_total",
			Help: "Total number of events vetoed by the filter chain",
		},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_deliveries_total",
			Help: "Total number of successful event deliveries, by destination",
		},
		[]string{"destination"},
	)

	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_delivery_failures_total",
			Help: "Total number of failed event deliveries, by destination",
		},
		[]string{"destination"},
	)
)

func init() {
	prometheus.MustRegister(
		eventsCaptured,
		eventsThrottled,
		eventsFiltered,
		deliveries,
		deliveryFailures,
	)
}
