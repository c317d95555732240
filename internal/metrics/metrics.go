package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "booking_operations_total",
			Help:      "Booking lifecycle operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "booking_conflicts_total",
			Help:      "Mutations rejected because the window overlapped an active booking.",
		},
	)

	availabilitySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Name:      "availability_compute_seconds",
			Help:      "Time spent computing free slots for a resource-day.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingOps, bookingConflicts, availabilitySeconds)
	})
}

// ObserveOp counts one lifecycle operation with its outcome label.
func ObserveOp(operation, outcome string) {
	bookingOps.WithLabelValues(operation, outcome).Inc()
}

// IncConflict counts a rejected conflicting mutation.
func IncConflict() {
	bookingConflicts.Inc()
}

// ObserveAvailability records one availability computation duration.
func ObserveAvailability(d time.Duration) {
	availabilitySeconds.Observe(d.Seconds())
}
