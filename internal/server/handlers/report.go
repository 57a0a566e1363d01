package handlers

import (
	"bytes"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/agentstation/homestay/internal/server/filter"
	"github.com/agentstation/homestay/internal/server/response"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/export"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// ReportData is the payload of GET /api/v1/report.
type ReportData struct {
	export.Document
	Summary   homestay.Summary                               `json:"summary"`
	Filter    reconciler.Filter                              `json:"filter"`
	Labels    display.Labels                                 `json:"labels"`
	FetchedAt time.Time                                      `json:"fetched_at"`
	Cached    bool                                           `json:"cached"`
	Breakdown map[homestay.Dataset][]reconciler.BreakdownRow `json:"breakdown,omitempty"`
}

// HandleReport handles GET /api/v1/report.
// Query: district, cluster (repeatable or comma-separated), summary=global|filtered,
// breakdown=true for per-dataset group counts.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	opts := h.svc.Display()
	q, err := filter.ParseReportQuery(r, opts.SummaryScope)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	snap, cached, err := h.svc.Lookup(r.Context())
	if err != nil {
		h.logFailure(r, err, "Report request failed")
		response.ErrorFromType(w, err)
		return
	}

	table := q.Apply(snap.Table)
	data := ReportData{
		Document:  export.NewDocument(table),
		Summary:   table.Summary(q.Scope),
		Filter:    q.Filter,
		Labels:    opts.Labels,
		FetchedAt: snap.FetchedAt,
		Cached:    cached,
	}
	if want, _ := strconv.ParseBool(r.URL.Query().Get("breakdown")); want || opts.ShowBreakdown {
		data.Breakdown = make(map[homestay.Dataset][]reconciler.BreakdownRow, len(homestay.Datasets))
		for _, d := range homestay.Datasets {
			data.Breakdown[d] = reconciler.Breakdown(table, d)
		}
	}
	response.OK(w, data)
}

// HandleDistricts handles GET /api/v1/districts. With ?district=X the
// cluster list is narrowed to that district, which must exist.
func (h *Handlers) HandleDistricts(w http.ResponseWriter, r *http.Request) {
	snap, _, err := h.svc.Lookup(r.Context())
	if err != nil {
		h.logFailure(r, err, "District lookup failed")
		response.ErrorFromType(w, err)
		return
	}

	districts := reconciler.DistinctDistricts(snap.Table)
	district := r.URL.Query().Get(filter.ParamDistrict)
	if district != "" && !slices.Contains(districts, district) {
		response.ErrorFromType(w, errors.NewNotFoundError("district", district))
		return
	}
	response.OK(w, map[string]any{
		"districts": nonNil(districts),
		"clusters":  nonNil(reconciler.DistinctClusters(snap.Table, district)),
	})
}

// HandleRefresh handles POST /api/v1/refresh.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.logFailure(r, err, "Refresh failed")
		response.ErrorFromType(w, err)
		return
	}

	h.logger.Info().Int("rows", len(snap.Table.Body())).Msg("Report refreshed on request")
	response.OK(w, map[string]any{
		"fetched_at": snap.FetchedAt,
		"rows":       len(snap.Table.Body()),
		"summary":    snap.Table.Summary(homestay.ScopeGlobal),
	})
}

// HandleDownload returns a handler serving the filtered report in format.
// The body is rendered fully before headers are written so a failure still
// produces a JSON error.
func (h *Handlers) HandleDownload(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := h.svc.Display()
		q, err := filter.ParseReportQuery(r, opts.SummaryScope)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}

		snap, _, err := h.svc.Lookup(r.Context())
		if err != nil {
			h.logFailure(r, err, "Download failed")
			response.ErrorFromType(w, err)
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, q.Apply(snap.Table), opts.Labels); err != nil {
			h.logFailure(r, err, "Export failed")
			response.InternalError(w, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
