package hooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcome labels.
const (
	outcomeDelivered = "delivered"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

var (
	deliveriesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kernelci_hook_deliveries_total",
		Help: "Hook deliveries by event type and outcome",
	}, []string{"event", "outcome"})
	attemptsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kernelci_hook_attempts_total",
		Help: "HTTP requests made to hook subscribers, retries included",
	}, []string{"event"})
)
