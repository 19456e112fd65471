package auth

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventRefreshSuccess      ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshReuse        ActivityEventType = "auth.refresh.reuse"
	ActivityEventLogout              ActivityEventType = "auth.logout"
	ActivityEventEmailConfirmed      ActivityEventType = "auth.email.confirmed"
	ActivityEventSignup              ActivityEventType = "auth.signup"
	ActivityEventVerificationRequest ActivityEventType = "auth.email.verification_requested"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// MultiActivitySink fans an event out to every sink, returning the first error.
type MultiActivitySink []ActivitySink

// Record implements ActivitySink.
func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PrometheusActivitySink counts events by type.
type PrometheusActivitySink struct {
	events *prometheus.CounterVec
}

// NewPrometheusActivitySink registers auth_activity_events_total on reg.
// A nil registerer leaves the collector unregistered.
func NewPrometheusActivitySink(reg prometheus.Registerer) (*PrometheusActivitySink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_activity_events_total",
		Help: "Authentication activity events by type.",
	}, []string{"event"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					events = existing
				}
			} else {
				return nil, err
			}
		}
	}

	return &PrometheusActivitySink{events: events}, nil
}

// Record implements ActivitySink.
func (s *PrometheusActivitySink) Record(_ context.Context, event ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Collector exposes the underlying counter
func (s *PrometheusActivitySink) Collector() *prometheus.CounterVec {
	return s.events
}

var (
	_ ActivitySink = ActivitySinkFunc(nil)
	_ ActivitySink = MultiActivitySink(nil)
	_ ActivitySink = (*PrometheusActivitySink)(nil)
)
