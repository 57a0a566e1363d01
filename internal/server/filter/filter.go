// Package filter parses report query parameters for the dashboard and API.
package filter

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// Query parameter names.
const (
	ParamDistrict = "district"
	ParamCluster  = "cluster"
	ParamSummary  = "summary"
)

// ReportQuery is a parsed report request.
type ReportQuery struct {
	Filter reconciler.Filter
	Scope  homestay.SummaryScope
}

// NoCluster selects the group of records without a block cluster.
const NoCluster = "(none)"

// ParseReportQuery extracts the district/cluster filter and summary scope.
// Each repeated parameter is one literal value; commas are not separators.
// An absent summary parameter falls back to defaultScope.
func ParseReportQuery(r *http.Request, defaultScope homestay.SummaryScope) (ReportQuery, error) {
	q := r.URL.Query()
	return NewReportQuery(q[ParamDistrict], q[ParamCluster], q.Get(ParamSummary), defaultScope)
}

// NewReportQuery builds a query from raw district, cluster and summary
// values. Blank values are dropped so an unselected dropdown does not
// narrow the report; NoCluster matches the empty cluster.
func NewReportQuery(districts, clusters []string, summary string, defaultScope homestay.SummaryScope) (ReportQuery, error) {
	query := ReportQuery{
		Filter: reconciler.Filter{
			Districts: values(districts, false),
			Clusters:  values(clusters, true),
		},
		Scope: defaultScope,
	}

	if raw := strings.TrimSpace(summary); raw != "" {
		scope, ok := homestay.ParseSummaryScope(strings.ToLower(raw))
		if !ok {
			return query, errors.NewValidationError(ParamSummary, raw, "must be global or filtered")
		}
		query.Scope = scope
	}
	if query.Scope == "" {
		query.Scope = homestay.ScopeFiltered
	}
	return query, nil
}

// Apply narrows table according to the query.
func (q ReportQuery) Apply(table *homestay.ReportTable) *homestay.ReportTable {
	if q.Filter.IsEmpty() && q.Scope == homestay.ScopeFiltered {
		return table
	}
	return q.Filter.Apply(table, q.Scope)
}

// Encode renders the query back into URL parameters, for download links.
func (q ReportQuery) Encode() string {
	v := url.Values{}
	for _, d := range q.Filter.Districts {
		v.Add(ParamDistrict, d)
	}
	for _, c := range q.Filter.Clusters {
		v.Add(ParamCluster, ClusterValue(c))
	}
	if q.Scope != "" && q.Scope != homestay.ScopeFiltered {
		v.Set(ParamSummary, string(q.Scope))
	}
	return v.Encode()
}

// ClusterValue is the parameter value that selects cluster.
func ClusterValue(cluster string) string {
	if cluster == "" {
		return NoCluster
	}
	return cluster
}

func values(raw []string, cluster bool) []string {
	var out []string
	for _, v := range raw {
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			continue
		case cluster && v == NoCluster:
			v = ""
		}
		out = append(out, v)
	}
	return out
}
