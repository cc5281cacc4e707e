package sse

import (
	"sync/atomic"

	"github.com/kbukum/authconnect/logger"
)

const clientBuffer = 64

// Client is one connected subscriber of a connector topic.
type Client struct {
	id       string
	topic    string
	metadata map[string]string
	initial  []Event
	events   chan Event
	dropped  atomic.Uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a key echoed in the connected event.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.metadata[key] = value }
}

// WithInitialEvent queues an event written right after the connected
// event, ahead of anything published later.
func WithInitialEvent(eventType string, data []byte) ClientOption {
	return func(c *Client) {
		c.initial = append(c.initial, Event{Type: eventType, Data: data})
	}
}

// NewClient creates a client subscribed to Topic(id).
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		topic:    Topic(id),
		metadata: map[string]string{},
		events:   make(chan Event, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Topic() string               { return c.topic }
func (c *Client) Metadata() map[string]string { return c.metadata }
func (c *Client) Events() <-chan Event        { return c.events }

// Dropped returns how many events were discarded for this client.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Send queues ev without blocking. A client that is not draining its queue
// loses the event and Send returns false.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		n := c.dropped.Add(1)
		logger.Warn("Event stream subscriber is behind, dropping event", logger.Fields(
			logger.FieldConnector, c.topic,
			"client_id", c.id,
			"event_type", ev.Type,
			"dropped", n,
		))
		return false
	}
}

// Close ends the client's event channel.
func (c *Client) Close() { close(c.events) }
