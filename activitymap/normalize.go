package activitymap

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	auth "github.com/goliatone/go-contacts-auth"
)

const (
	// MetadataKeyEmailDomain stores the domain part of the event e-mail.
	MetadataKeyEmailDomain = "email_domain"
)

const (
	ObjectSession = "session"
	ObjectAccount = "account"
)

const (
	defaultChannel = "auth"
	anonymousActor = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	redactEmail   bool
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	email := strings.TrimSpace(event.Email)
	if options.redactEmail {
		email = ""
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.UserID),
			email,
			options.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: objectType(event.EventType),
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if c := strings.TrimSpace(channel); c != "" {
			opts.channel = c
		}
	}
}

// WithActorFallback sets the actor id used when the event has neither a user id nor an e-mail.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if a := strings.TrimSpace(actorID); a != "" {
			opts.actorFallback = a
		}
	}
}

// WithRedactedEmail keeps the e-mail out of the actor id. The domain is
// still reported in metadata.
func WithRedactedEmail() Option {
	return func(opts *normalizeOptions) {
		opts.redactEmail = true
	}
}

// WithNow sets the clock used for events without a timestamp.
func WithNow(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// ZapSink logs normalized activity records with structured fields.
type ZapSink struct {
	logger *zap.Logger
	opts   []Option
}

// NewZapSink returns an auth.ActivitySink writing to logger
func NewZapSink(logger *zap.Logger, opts ...Option) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("activity"), opts: opts}
}

// Record implements auth.ActivitySink
func (s *ZapSink) Record(_ context.Context, event auth.ActivityEvent) error {
	n := Normalize(event, s.opts...)

	fields := []zap.Field{
		zap.String("actor_id", n.ActorID),
		zap.String("verb", n.Verb),
		zap.String("object_type", n.ObjectType),
		zap.String("channel", n.Channel),
		zap.Time("occurred_at", n.OccurredAt),
	}
	if n.ObjectID != "" {
		fields = append(fields, zap.String("object_id", n.ObjectID))
	}
	if len(n.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", n.Metadata))
	}

	if event.EventType == auth.ActivityEventRefreshReuse || event.EventType == auth.ActivityEventLoginFailure {
		s.logger.Warn("auth activity", fields...)
		return nil
	}
	s.logger.Info("auth activity", fields...)
	return nil
}

var _ auth.ActivitySink = (*ZapSink)(nil)

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: anonymousActor,
		now:           time.Now,
	}
}

func objectType(eventType auth.ActivityEventType) string {
	switch eventType {
	case auth.ActivityEventSignup,
		auth.ActivityEventEmailConfirmed,
		auth.ActivityEventVerificationRequest:
		return ObjectAccount
	default:
		return ObjectSession
	}
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if _, domain, ok := strings.Cut(strings.TrimSpace(event.Email), "@"); ok && domain != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyEmailDomain]; !exists {
			metadata[MetadataKeyEmailDomain] = strings.ToLower(domain)
		}
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
