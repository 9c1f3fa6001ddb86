package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Tausif706/FreshMart/pkg/kafka"
)

// TopicAuthSessions carries sign-in and sign-out events from the auth
// backend.
var TopicAuthSessions = kafka.Topic("auth", "sessions")

// Event types delivered on the auth session topic.
const (
	eventSignedIn  = "auth.signed_in"
	eventSignedOut = "auth.signed_out"
)

type sessionPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// consumer is the subset of the Kafka consumer the feed needs.
type consumer interface {
	Run(ctx context.Context, handler kafka.Handler) error
}

// Feed consumes the auth session topic and drives the observer.
type Feed struct {
	consumer consumer
	observer *Observer
	logger   *slog.Logger
}

// NewFeed creates a session feed over the given consumer.
func NewFeed(c consumer, observer *Observer, logger *slog.Logger) *Feed {
	return &Feed{consumer: c, observer: observer, logger: logger}
}

// Run consumes session events until the context is canceled.
func (f *Feed) Run(ctx context.Context) error {
	f.observer.MarkResolved()
	return f.consumer.Run(ctx, f.handle)
}

func (f *Feed) handle(ctx context.Context, evt kafka.Event) error {
	payload, err := decodePayload(evt)
	if err != nil {
		return err
	}
	if payload.UserID == "" {
		return fmt.Errorf("session event %s has no user_id", evt.ID)
	}

	switch evt.Type {
	case eventSignedIn:
		f.observer.SignedIn(Identity{UserID: payload.UserID, Email: payload.Email, Role: payload.Role})
	case eventSignedOut:
		f.observer.SignedOut(payload.UserID)
	default:
		f.logger.Debug("ignoring unknown session event",
			slog.String("event_type", evt.Type),
			slog.String("event_id", evt.ID),
		)
	}
	return nil
}

// decodePayload round-trips the envelope payload into the typed form. The
// envelope decodes Payload as a generic map, so a re-marshal is required.
func decodePayload(evt kafka.Event) (sessionPayload, error) {
	var p sessionPayload
	raw, err := json.Marshal(evt.Payload)
	if err != nil {
		return p, fmt.Errorf("re-marshal session payload: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode session payload: %w", err)
	}
	return p, nil
}
