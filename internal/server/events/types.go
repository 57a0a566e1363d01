// Package events fans report events out to every live transport.
//
// The pipeline publishes into a Broker; adapters forward each event to the
// websocket hub and the SSE broadcaster so both stay in step.
package events

import "time"

// EventType names an event on the update stream.
type EventType string

// Event types.
const (
	// ReportRefreshed fires after a fresh fetch and reconciliation.
	ReportRefreshed EventType = "report.refreshed"

	// RefreshFailed fires when a fetch or reconciliation fails.
	RefreshFailed EventType = "report.refresh_failed"

	// ClientConnected fires when a transport client attaches.
	ClientConnected EventType = "client.connected"
)

// Event is a typed, timestamped message.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
