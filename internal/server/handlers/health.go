package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/homestay/internal/server/response"
)

// HandleHealth handles GET /health and GET /api/v1/health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "homestay",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. The service is ready once a report
// can be served, from cache or by a fresh fetch.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	snap, cached, err := h.svc.Lookup(r.Context())
	if err != nil {
		h.logFailure(r, err, "Readiness check failed")
		response.ServiceUnavailable(w, "Report not available: "+err.Error())
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"fetched_at":        snap.FetchedAt,
		"cached":            cached,
		"rows":              len(snap.Table.Body()),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
		"uptime":            time.Since(h.startTime).Round(time.Second).String(),
	})
}
