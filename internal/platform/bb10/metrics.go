package bb10

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push outcomes used as the "outcome" label.
const (
	outcomeAccepted       = "accepted"
	outcomeInvalidAddress = "invalid_address"
	outcomeRejected       = "rejected"
	outcomeUnavailable    = "unavailable"
	outcomeTransportError = "transport_error"
	outcomeProtocolError  = "protocol_error"
)

var (
	// pushTotal counts gateway submissions by outcome
	pushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pap_push_total",
			Help: "Total number of push submissions to the PAP gateway",
		},
		[]string{"outcome"},
	)

	// pushRecipients counts addressed devices, not submissions
	pushRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pap_push_recipients_total",
			Help: "Total number of device PINs addressed in push submissions",
		},
	)

	pushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pap_push_duration_seconds",
			Help:    "PAP gateway round trip duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

func recordPush(outcome string, recipients int, elapsed time.Duration) {
	pushTotal.WithLabelValues(outcome).Inc()
	pushRecipients.Add(float64(recipients))
	pushDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
