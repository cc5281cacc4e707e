package sse

import (
	"strings"

	"github.com/google/uuid"
)

// Event types written in the "event:" field.
const (
	// EventTypeConnected is sent once when a client subscribes.
	EventTypeConnected = "connected"
	// EventTypeState carries a connector state snapshot.
	EventTypeState = "state"
	// EventTypeError carries a provider error reported by a connector.
	EventTypeError = "error"
	// EventTypeCircuit carries a backend circuit breaker transition.
	EventTypeCircuit = "circuit"
)

// Event is one frame queued for a client.
type Event struct {
	Type string
	Data []byte
}

// Publisher sends events to the subscribers of a topic.
// Connector observers depend on it rather than on a concrete Hub.
type Publisher interface {
	Publish(topic, eventType string, data []byte)
}

// NewClientID returns a fresh client id subscribed to topic.
func NewClientID(topic string) string {
	return topic + ":" + uuid.NewString()
}

// Topic returns the topic part of a client id.
func Topic(clientID string) string {
	topic, _, _ := strings.Cut(clientID, ":")
	return topic
}
