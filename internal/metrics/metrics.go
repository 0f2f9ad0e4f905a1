// Package metrics exposes Prometheus counters for booking flows.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics counts booking outcomes. A nil *BookingMetrics is valid
// and records nothing.
type BookingMetrics struct {
	created      *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	availability *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "created_total",
			Help:      "Bookings created, by source and whether the slot is conflict-checked.",
		}, []string{"source", "exempt"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Writes rejected because the slot was already booked.",
		}, []string{"stage"}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "availability_requests_total",
			Help:      "Availability reads, by kind.",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.conflicts, m.availability)
	return m
}

func (m *BookingMetrics) ObserveCreated(source string, exempt bool) {
	if m == nil {
		return
	}
	label := "false"
	if exempt {
		label = "true"
	}
	m.created.WithLabelValues(source, label).Inc()
}

// ObserveConflict records a rejection. stage is "precheck" when the fast
// read caught it and "constraint" when the unique index did.
func (m *BookingMetrics) ObserveConflict(stage string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(stage).Inc()
}

func (m *BookingMetrics) ObserveAvailability(kind string) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(kind).Inc()
}
