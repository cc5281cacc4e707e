package sse

import (
	"sync"

	"github.com/kbukum/authconnect/logger"
)

type frame struct {
	topic string
	event Event
}

// Hub fans connector events out to their subscribers. Membership and
// delivery run on the Run goroutine, so events of one topic reach every
// subscriber in publish order.
type Hub struct {
	joins  chan *Client
	leaves chan *Client
	frames chan frame
	done   chan struct{}
	stop   sync.Once

	mu     sync.RWMutex
	topics map[string]map[string]*Client
}

// NewHub creates a Hub. Run must be started before clients register.
func NewHub() *Hub {
	return &Hub{
		joins:  make(chan *Client),
		leaves: make(chan *Client),
		frames: make(chan frame, 256),
		done:   make(chan struct{}),
		topics: map[string]map[string]*Client{},
	}
}

// Run serves the hub until Stop, then closes every client.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.joins:
			h.join(c)
		case c := <-h.leaves:
			h.leave(c)
		case f := <-h.frames:
			h.deliver(f)
		}
	}
}

func (h *Hub) join(c *Client) {
	h.mu.Lock()
	subs := h.topics[c.topic]
	if subs == nil {
		subs = map[string]*Client{}
		h.topics[c.topic] = subs
	}
	subs[c.id] = c
	n := len(subs)
	h.mu.Unlock()
	logger.Debug("Event stream subscribed", logger.Fields(logger.FieldConnector, c.topic, "client_id", c.id, "subscribers", n))
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	subs := h.topics[c.topic]
	_, ok := subs[c.id]
	if ok {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.mu.Unlock()
	if ok {
		c.Close()
		logger.Debug("Event stream unsubscribed", logger.Fields(logger.FieldConnector, c.topic, "client_id", c.id))
	}
}

func (h *Hub) deliver(f frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[f.topic] {
		c.Send(f.event)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, subs := range h.topics {
		for _, c := range subs {
			c.Close()
		}
		delete(h.topics, topic)
	}
}

// Stop shuts the hub down. Later calls are no-ops.
func (h *Hub) Stop() { h.stop.Do(func() { close(h.done) }) }

// Register subscribes c. It returns false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.joins <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.done:
	}
}

// Publish queues an event for every subscriber of topic. Events published
// after Stop are discarded.
func (h *Hub) Publish(topic, eventType string, data []byte) {
	select {
	case h.frames <- frame{topic: topic, event: Event{Type: eventType, Data: data}}:
	case <-h.done:
	}
}

// Len returns the number of subscribers across all topics.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.topics {
		n += len(subs)
	}
	return n
}

// CountByTopic returns the number of subscribers of each connector.
func (h *Hub) CountByTopic() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.topics))
	for topic, subs := range h.topics {
		out[topic] = len(subs)
	}
	return out
}

// Dropped returns the events lost by current subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var n uint64
	for _, subs := range h.topics {
		for _, c := range subs {
			n += c.Dropped()
		}
	}
	return n
}

// Lookup returns the subscriber with id.
func (h *Hub) Lookup(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.topics[Topic(id)][id]
	return c, ok
}

var _ Publisher = (*Hub)(nil)
