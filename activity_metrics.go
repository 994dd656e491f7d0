package portal

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

var _ ActivitySink = &MetricsSink{}

// MetricsSink counts activity events and tracks whether a session is active
type MetricsSink struct {
	EventsTotal   *prometheus.CounterVec
	Authenticated prometheus.Gauge
}

// NewMetricsSink creates the collectors and registers them with reg
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	m := &MetricsSink{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_session_events_total",
				Help: "Total number of session activity events by type",
			},
			[]string{"event"},
		),
		Authenticated: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_session_authenticated",
				Help: "1 when the portal holds an authenticated session",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.EventsTotal)
		reg.MustRegister(m.Authenticated)
	}

	return m
}

func (m *MetricsSink) Record(_ context.Context, event ActivityEvent) error {
	m.EventsTotal.WithLabelValues(string(event.EventType)).Inc()

	if event.ToState == "" {
		return nil
	}

	if event.ToState == StateAuthenticated {
		m.Authenticated.Set(1)
	} else {
		m.Authenticated.Set(0)
	}
	return nil
}
