package reconciler

import (
	"slices"

	"github.com/agentstation/homestay/pkg/homestay"
)

// Filter narrows a report to selected districts and clusters. Matching is
// exact; an empty dimension places no restriction.
type Filter struct {
	Districts []string `json:"districts,omitempty" yaml:"districts,omitempty"`
	Clusters  []string `json:"clusters,omitempty" yaml:"clusters,omitempty"`
}

// IsEmpty reports whether the filter keeps every row.
func (f Filter) IsEmpty() bool {
	return len(f.Districts) == 0 && len(f.Clusters) == 0
}

// Matches reports whether a body row passes the filter.
func (f Filter) Matches(row homestay.AggregateRow) bool {
	if len(f.Districts) > 0 && !slices.Contains(f.Districts, row.District) {
		return false
	}
	if len(f.Clusters) > 0 && !slices.Contains(f.Clusters, row.Cluster) {
		return false
	}
	return true
}

// Apply returns a new table holding only matching body rows. With
// ScopeFiltered the total row is recomputed over those rows; with
// ScopeGlobal it keeps the program-wide sums of the input table.
func (f Filter) Apply(table *homestay.ReportTable, scope homestay.SummaryScope) *homestay.ReportTable {
	total := table.Total()
	if total.District == "" {
		total.District = DefaultTotalLabel
	}

	body := make([]homestay.AggregateRow, 0, len(table.Body()))
	for _, row := range table.Body() {
		if f.Matches(row) {
			body = append(body, row)
		}
	}

	if scope == homestay.ScopeGlobal {
		rows := make([]homestay.AggregateRow, 0, len(body)+1)
		rows = append(rows, total)
		rows = append(rows, body...)
		return &homestay.ReportTable{Rows: rows}
	}
	return withTotal(total.District, body)
}

// DistinctDistricts lists the districts present in the body, sorted.
func DistinctDistricts(table *homestay.ReportTable) []string {
	var out []string
	for _, row := range table.Body() {
		out = append(out, row.District)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// DistinctClusters lists the clusters present in the body, sorted. When
// district is non-empty only that district's clusters are listed.
func DistinctClusters(table *homestay.ReportTable, district string) []string {
	var out []string
	for _, row := range table.Body() {
		if district != "" && row.District != district {
			continue
		}
		out = append(out, row.Cluster)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// BreakdownRow is one group's count within a single dataset.
type BreakdownRow struct {
	District string `json:"district_name" yaml:"district_name"`
	Cluster  string `json:"block_cluster" yaml:"block_cluster"`
	Count    int    `json:"member_count" yaml:"member_count"`
}

// Breakdown lists the groups observed in one dataset with their counts,
// in report order.
func Breakdown(table *homestay.ReportTable, dataset homestay.Dataset) []BreakdownRow {
	var out []BreakdownRow
	for _, row := range table.Body() {
		if n := row.Count(dataset); n > 0 {
			out = append(out, BreakdownRow{District: row.District, Cluster: row.Cluster, Count: n})
		}
	}
	return out
}
