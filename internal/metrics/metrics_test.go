package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveCreated("wordpress", false)
	m.ObserveCreated("wordpress", false)
	m.ObserveCreated("admin_panel", true)
	m.ObserveConflict("precheck")
	m.ObserveConflict("constraint")
	m.ObserveAvailability("timeslots")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created.WithLabelValues("wordpress", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("admin_panel", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("constraint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.availability.WithLabelValues("timeslots")))
}

func TestNilBookingMetricsIsNoop(t *testing.T) {
	var m *BookingMetrics
	assert.NotPanics(t, func() {
		m.ObserveCreated("wordpress", false)
		m.ObserveConflict("precheck")
		m.ObserveAvailability("check")
	})
}
