package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/internal/server/events"
	"github.com/agentstation/homestay/internal/server/sse"
	ws "github.com/agentstation/homestay/internal/server/websocket"
)

type fakeHub struct{ got []ws.Message }

func (f *fakeHub) Broadcast(m ws.Message) { f.got = append(f.got, m) }

type fakeStream struct{ got []sse.Event }

func (f *fakeStream) Broadcast(e sse.Event) { f.got = append(f.got, e) }

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestWebSocketSubscriberForwardsEverything(t *testing.T) {
	hub := &fakeHub{}
	sub := &WebSocketSubscriber{hub: hub}

	require.NoError(t, sub.Send(events.Event{Type: events.ReportRefreshed, Timestamp: at, Data: map[string]int{"rows": 2}}))
	require.NoError(t, sub.Send(events.Event{Type: events.ClientConnected, Timestamp: at}))
	require.NoError(t, sub.Close())

	require.Len(t, hub.got, 2)
	assert.Equal(t, ws.Message{Type: "report.refreshed", Timestamp: at, Data: map[string]int{"rows": 2}}, hub.got[0])
	assert.Equal(t, "client.connected", hub.got[1].Type)
}

func TestSSESubscriberNumbersReportEvents(t *testing.T) {
	stream := &fakeStream{}
	sub := &SSESubscriber{broadcaster: stream}

	require.NoError(t, sub.Send(events.Event{Type: events.ReportRefreshed, Timestamp: at, Data: "first"}))
	require.NoError(t, sub.Send(events.Event{Type: events.ClientConnected, Timestamp: at}))
	require.NoError(t, sub.Send(events.Event{Type: events.RefreshFailed, Timestamp: at, Data: "second"}))

	require.Len(t, stream.got, 2)
	assert.Equal(t, "report.refreshed", stream.got[0].Event)
	assert.Equal(t, "1", stream.got[0].ID)
	assert.Equal(t, map[string]any{"timestamp": at, "data": "first"}, stream.got[0].Data)
	assert.Equal(t, "report.refresh_failed", stream.got[1].Event)
	assert.Equal(t, "2", stream.got[1].ID)
}
