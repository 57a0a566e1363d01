// Package handlers provides the HTTP handlers for the homestay dashboard,
// downloads, and JSON API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/homestay/internal/server/sse"
	ws "github.com/agentstation/homestay/internal/server/websocket"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/logging"
)

// ReportService produces reconciled snapshots. *pipeline.Service satisfies it.
type ReportService interface {
	Lookup(ctx context.Context) (*homestay.Snapshot, bool, error)
	Refresh(ctx context.Context) (*homestay.Snapshot, error)
	Cached(ctx context.Context) (*homestay.Snapshot, bool)
	Display() display.Options
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	svc            ReportService
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	pathPrefix     string
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	svc ReportService,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
	pathPrefix string,
) *Handlers {
	return &Handlers{
		svc:            svc,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		pathPrefix:     pathPrefix,
		startTime:      time.Now(),
	}
}

// logFailure records a report failure against the request logger.
func (h *Handlers) logFailure(r *http.Request, err error, msg string) {
	logger := logging.FromContext(r.Context())
	event := logger.Error().Err(err)
	switch {
	case errors.IsCanceled(err):
		event = logger.Debug().Err(err)
	case errors.IsInvalidResponse(err), errors.IsRateLimited(err):
		event = logger.Warn().Err(err)
	}
	event.Str("path", r.URL.Path).Msg(msg)
}
