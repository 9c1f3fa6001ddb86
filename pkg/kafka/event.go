package kafka

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every message published to Kafka. Payload holds
// the event-specific body and is serialized as-is.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// NewEvent creates an event envelope with a fresh ID and timestamp.
func NewEvent(eventType, source string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Topic builds a fully qualified topic name under the freshmart namespace.
func Topic(parts ...string) string {
	topic := "freshmart"
	for _, p := range parts {
		topic += "." + p
	}
	return topic
}
