package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-contacts-auth"
)

func TestPrometheusActivitySink(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	sink, err := auth.NewPrometheusActivitySink(reg)
	require.NoError(t, err)

	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventRefreshReuse}))

	counter := sink.Collector()
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues(string(auth.ActivityEventLoginSuccess))))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(string(auth.ActivityEventRefreshReuse))))

	// registering twice reuses the existing collector
	again, err := auth.NewPrometheusActivitySink(reg)
	require.NoError(t, err)
	require.NoError(t, again.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	assert.Equal(t, 3.0, testutil.ToFloat64(counter.WithLabelValues(string(auth.ActivityEventLoginSuccess))))
}

func TestMultiActivitySink(t *testing.T) {
	ctx := context.Background()
	first := &recordingSink{}
	second := &recordingSink{}
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	})

	multi := auth.MultiActivitySink{first, nil, failing, second}
	err := multi.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLogout, OccurredAt: time.Now()})
	require.Error(t, err)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLogout}, first.types())
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLogout}, second.types())
}

func TestAuther_SinkFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(confirmedUser(aliceEmail, alicePassword))

	var stamped time.Time
	auther := auth.NewAuthenticator(store, newTokenService(clock)).
		WithPasswordHasher(fastHasher).
		WithClock(clock).
		WithActivitySink(auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			stamped = e.OccurredAt
			return errors.New("sink down")
		}))

	_, err := auther.Login(ctx, aliceEmail, alicePassword)
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(stamped))
}
