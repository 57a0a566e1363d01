package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"slices"
	"time"

	"github.com/agentstation/homestay/internal/server/filter"
	"github.com/agentstation/homestay/internal/server/response"
	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/export"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"count":        display.FormatCount,
	"contains":     contains,
	"clusterValue": filter.ClusterValue,
}).ParseFS(templateFS, "templates/dashboard.html"))

type figure struct {
	Label string
	Value int
}

type breakdownSection struct {
	Title string
	Rows  []reconciler.BreakdownRow
}

// dashboardError is the blocking panel shown instead of the report.
type dashboardError struct {
	Title   string
	Message string
	Raw     string
	Warning bool
}

type dashboardView struct {
	Options     display.Options
	Theme       display.Theme
	Header      []string
	Rows        []homestay.AggregateRow
	Figures     []figure
	ScopeLabel  string
	Query       filter.ReportQuery
	Districts   []string
	Clusters    []string
	Breakdown   []breakdownSection
	FetchedAt   time.Time
	Cached      bool
	CSVURL      template.URL
	XLSXURL     template.URL
	UpdatesPath string
	Error       *dashboardError
}

// HandleDashboard handles GET /.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	opts := h.svc.Display()
	view := dashboardView{
		Options:     opts,
		Theme:       opts.Palette(),
		Header:      opts.Labels.Header(),
		UpdatesPath: h.pathPrefix + "/updates/ws",
	}

	q, err := filter.ParseReportQuery(r, opts.SummaryScope)
	if err != nil {
		view.Error = &dashboardError{Title: "Invalid filter", Message: err.Error()}
		h.renderDashboard(w, r, http.StatusBadRequest, view)
		return
	}
	view.Query = q

	snap, cached, err := h.svc.Lookup(r.Context())
	if err != nil {
		h.logFailure(r, err, "Dashboard render failed")
		view.Error = describeFailure(err)
		h.renderDashboard(w, r, response.Status(err), view)
		return
	}

	table := q.Apply(snap.Table)
	summary := table.Summary(q.Scope)
	view.Rows = table.Rows
	view.Figures = []figure{
		{Label: "New Homestays", Value: summary.New},
		{Label: "Upgradations", Value: summary.Upgradation},
		{Label: "Total Applications", Value: summary.Combined},
	}
	view.ScopeLabel = summary.Scope.Label()
	view.FetchedAt = snap.FetchedAt
	view.Cached = cached

	if opts.ShowFilters {
		view.Districts = reconciler.DistinctDistricts(snap.Table)
		district := ""
		if len(q.Filter.Districts) == 1 {
			district = q.Filter.Districts[0]
		}
		view.Clusters = reconciler.DistinctClusters(snap.Table, district)
	}
	if opts.ShowBreakdown {
		for _, d := range homestay.Datasets {
			view.Breakdown = append(view.Breakdown, breakdownSection{
				Title: d.Title(),
				Rows:  reconciler.Breakdown(table, d),
			})
		}
	}

	encoded := q.Encode()
	view.CSVURL = downloadURL(export.FormatCSV, encoded)
	view.XLSXURL = downloadURL(export.FormatXLSX, encoded)

	h.renderDashboard(w, r, http.StatusOK, view)
}

func (h *Handlers) renderDashboard(w http.ResponseWriter, r *http.Request, status int, view dashboardView) {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		h.logFailure(r, err, "Dashboard template failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// describeFailure turns a pipeline error into the dashboard's error panel.
// Invalid upstream responses carry the raw body for inspection.
func describeFailure(err error) *dashboardError {
	var invalid *errors.InvalidResponseError
	if errors.As(err, &invalid) {
		title := "Failed to fetch valid data"
		warning := false
		if invalid.ResponseCode == constants.SuccessResponseCode {
			title = "Insufficient data rows received from API"
			warning = true
		}
		return &dashboardError{
			Title:   title,
			Message: invalid.Error(),
			Raw:     prettyJSON(invalid.Raw),
			Warning: warning,
		}
	}
	if errors.IsFetchError(err) {
		return &dashboardError{Title: "API Error", Message: err.Error()}
	}
	return &dashboardError{Title: "Report could not be computed", Message: err.Error()}
}

func prettyJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func downloadURL(format export.Format, query string) template.URL {
	u := "/report." + string(format)
	if query != "" {
		u += "?" + query
	}
	return template.URL(u) //nolint:gosec // built from url.Values.Encode
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
