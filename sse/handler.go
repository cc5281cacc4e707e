package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/authconnect/logger"
)

// KeepAliveInterval is how often a comment frame is written on idle streams.
var KeepAliveInterval = 30 * time.Second

// RetryHint is the reconnect delay suggested to browsers.
var RetryHint = 3 * time.Second

// ConnectedEvent is the payload of the first frame on a stream.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ServeSSE streams the events of Topic(clientID) until the request ends or
// the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	client := NewClient(clientID, opts...)
	log := logger.GetGlobalLogger().WithConnector(client.Topic()).WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("Event stream needs a flushing writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	// Streams outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Write deadline left in place", logger.Fields(logger.FieldError, err.Error()))
	}

	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintf(w, "retry: %d\n\n", RetryHint.Milliseconds())
	hello, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Topic: client.Topic(), Metadata: client.Metadata()})
	writeEvent(w, Event{Type: EventTypeConnected, Data: hello})
	for _, ev := range client.initial {
		writeEvent(w, ev)
	}
	flusher.Flush()
	log.Debug("Event stream opened", logger.Fields("remote_addr", r.RemoteAddr))

	tick := time.NewTicker(KeepAliveInterval)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			log.Debug("Event stream closed by client")
			return
		case ev, open := <-client.Events():
			if !open {
				return
			}
			writeEvent(w, ev)
		case now := <-tick.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", now.Unix())
		}
		flusher.Flush()
	}
}

func writeEvent(w io.Writer, ev Event) {
	if ev.Type != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}
