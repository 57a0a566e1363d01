// Package adapters forwards broker events to the websocket hub and the
// SSE broadcaster.
package adapters

import (
	"strconv"
	"sync/atomic"

	"github.com/agentstation/homestay/internal/server/events"
	"github.com/agentstation/homestay/internal/server/sse"
	ws "github.com/agentstation/homestay/internal/server/websocket"
)

// messageSink is the part of the websocket hub the adapter needs.
type messageSink interface {
	Broadcast(ws.Message)
}

// streamSink is the part of the SSE broadcaster the adapter needs.
type streamSink interface {
	Broadcast(sse.Event)
}

// WebSocketSubscriber forwards every event to websocket clients.
type WebSocketSubscriber struct {
	hub messageSink
}

// NewWebSocketSubscriber creates a subscriber for hub.
func NewWebSocketSubscriber(hub *ws.Hub) *WebSocketSubscriber {
	return &WebSocketSubscriber{hub: hub}
}

// Send implements events.Subscriber.
func (w *WebSocketSubscriber) Send(event events.Event) error {
	w.hub.Broadcast(ws.Message{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	return nil
}

// Close is a no-op; the hub stops with the server.
func (w *WebSocketSubscriber) Close() error { return nil }

// SSESubscriber forwards report events to SSE clients, numbering them so a
// reconnecting browser can report the last id it saw. Client connection
// events describe websocket clients and are not streamed.
type SSESubscriber struct {
	broadcaster streamSink
	seq         atomic.Uint64
}

// NewSSESubscriber creates a subscriber for broadcaster.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send implements events.Subscriber.
func (s *SSESubscriber) Send(event events.Event) error {
	if event.Type == events.ClientConnected {
		return nil
	}
	s.broadcaster.Broadcast(sse.Event{
		Event: string(event.Type),
		ID:    strconv.FormatUint(s.seq.Add(1), 10),
		Data: map[string]any{
			"timestamp": event.Timestamp,
			"data":      event.Data,
		},
	})
	return nil
}

// Close is a no-op; the broadcaster stops with the server.
func (s *SSESubscriber) Close() error { return nil }
