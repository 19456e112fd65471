package activitymap_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	auth "github.com/goliatone/go-contacts-auth"
	"github.com/goliatone/go-contacts-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		UserID:    "user-100",
		Email:     "Alice@Example.COM",
		Metadata: map[string]any{
			"reason": "bad_password",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginFailure) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginFailure, out.Verb)
	}
	if out.ObjectType != activitymap.ObjectSession {
		t.Fatalf("expected object_type session, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["reason"] != "bad_password" {
		t.Fatalf("expected metadata reason bad_password, got %#v", out.Metadata["reason"])
	}
	if out.Metadata[activitymap.MetadataKeyEmailDomain] != "example.com" {
		t.Fatalf("expected metadata email_domain example.com, got %#v", out.Metadata[activitymap.MetadataKeyEmailDomain])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeObjectTypes(t *testing.T) {
	t.Parallel()

	accounts := []auth.ActivityEventType{
		auth.ActivityEventSignup,
		auth.ActivityEventEmailConfirmed,
		auth.ActivityEventVerificationRequest,
	}
	for _, et := range accounts {
		if got := activitymap.Normalize(auth.ActivityEvent{EventType: et}).ObjectType; got != activitymap.ObjectAccount {
			t.Fatalf("expected %s to map to account, got %q", et, got)
		}
	}

	sessions := []auth.ActivityEventType{
		auth.ActivityEventLoginSuccess,
		auth.ActivityEventRefreshSuccess,
		auth.ActivityEventRefreshReuse,
		auth.ActivityEventLogout,
	}
	for _, et := range sessions {
		if got := activitymap.Normalize(auth.ActivityEvent{EventType: et}).ObjectType; got != activitymap.ObjectSession {
			t.Fatalf("expected %s to map to session, got %q", et, got)
		}
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Email:     "ghost@example.com",
		Metadata: map[string]any{
			activitymap.MetadataKeyEmailDomain: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithRedactedEmail(),
		activitymap.WithNow(func() time.Time { return fixed }),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ActorID != "anonymous" {
		t.Fatalf("expected redacted actor anonymous, got %q", out.ActorID)
	}
	if out.ObjectID != "" {
		t.Fatalf("expected empty object_id, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyEmailDomain] != "existing" {
		t.Fatalf("expected existing email_domain preserved, got %#v", out.Metadata[activitymap.MetadataKeyEmailDomain])
	}
	if !out.OccurredAt.Equal(fixed) {
		t.Fatalf("expected occurred_at %v, got %v", fixed, out.OccurredAt)
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses user id when present",
			event:  auth.ActivityEvent{UserID: "user-1", Email: "a@example.com"},
			expect: "user-1",
		},
		{
			name:   "uses email when user id missing",
			event:  auth.ActivityEvent{Email: "a@example.com"},
			expect: "a@example.com",
		},
		{
			name:   "uses default fallback when user and email missing",
			event:  auth.ActivityEvent{},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback when user and email missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestZapSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := activitymap.NewZapSink(zap.New(core))

	ctx := context.Background()
	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess, UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventRefreshReuse, UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info for login success, got %s", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for refresh reuse, got %s", entries[1].Level)
	}
	if got := entries[0].ContextMap()["verb"]; got != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb field %q, got %#v", auth.ActivityEventLoginSuccess, got)
	}
	if entries[0].LoggerName != "activity" {
		t.Fatalf("expected logger name activity, got %q", entries[0].LoggerName)
	}
}
