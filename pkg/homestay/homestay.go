// Package homestay defines the domain model for the homestay program dashboard:
// upstream records, group keys, per-group counts, and the reconciled report.
package homestay

import (
	"fmt"
	"time"
)

// Dataset names one of the two record collections served by the upstream API.
type Dataset string

const (
	// DatasetNew holds applications for new homestays (rows[0]).
	DatasetNew Dataset = "new"
	// DatasetUpgradation holds applications to upgrade existing homestays (rows[1]).
	DatasetUpgradation Dataset = "upgradation"
)

// Datasets lists the collections in payload order.
var Datasets = []Dataset{DatasetNew, DatasetUpgradation}

// String returns the dataset name.
func (d Dataset) String() string { return string(d) }

// Title returns the heading used when a dataset is shown on its own.
func (d Dataset) Title() string {
	switch d {
	case DatasetNew:
		return "New Homestays by District and Block"
	case DatasetUpgradation:
		return "Upgradation of Existing Homestays by District and Block"
	default:
		return string(d)
	}
}

// Record is one application as decoded from upstream JSON. Only the
// grouping fields are interpreted; everything else is carried through.
type Record map[string]any

// Upstream field names.
const (
	FieldDistrict = "district_name"
	FieldCluster  = "block_cluster"
	FieldMember   = "member_id"
)

// GroupKey identifies one district/cluster group. Equality is exact string
// equality; an empty Cluster is a valid key of its own.
type GroupKey struct {
	District string `json:"district_name" yaml:"district_name"`
	Cluster  string `json:"block_cluster" yaml:"block_cluster"`
}

// String renders the key as "district/cluster".
func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s", k.District, k.Cluster)
}

// Less orders keys by district, then cluster, byte-wise.
func (k GroupKey) Less(other GroupKey) bool {
	if k.District != other.District {
		return k.District < other.District
	}
	return k.Cluster < other.Cluster
}

// Counts maps each observed group to its record count.
type Counts map[GroupKey]int

// Total sums every group count.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// AggregateRow is one line of the report.
type AggregateRow struct {
	District    string `json:"district_name" yaml:"district_name"`
	Cluster     string `json:"block_cluster" yaml:"block_cluster"`
	New         int    `json:"new_count" yaml:"new_count"`
	Upgradation int    `json:"upgradation_count" yaml:"upgradation_count"`
}

// Key returns the row's group key.
func (r AggregateRow) Key() GroupKey {
	return GroupKey{District: r.District, Cluster: r.Cluster}
}

// IsZero reports whether both counts are zero.
func (r AggregateRow) IsZero() bool {
	return r.New == 0 && r.Upgradation == 0
}

// Count returns the row's count for a dataset.
func (r AggregateRow) Count(d Dataset) int {
	if d == DatasetUpgradation {
		return r.Upgradation
	}
	return r.New
}

// ReportTable is the reconciled report. Rows[0] is always the synthetic
// total row; the body follows in district, cluster order.
type ReportTable struct {
	Rows []AggregateRow `json:"rows" yaml:"rows"`
}

// Total returns the synthetic total row.
func (t *ReportTable) Total() AggregateRow {
	if t == nil || len(t.Rows) == 0 {
		return AggregateRow{}
	}
	return t.Rows[0]
}

// Body returns the group rows without the total row.
func (t *ReportTable) Body() []AggregateRow {
	if t == nil || len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Summary returns the headline figures taken from the total row.
func (t *ReportTable) Summary(scope SummaryScope) Summary {
	total := t.Total()
	return Summary{
		New:         total.New,
		Upgradation: total.Upgradation,
		Combined:    total.New + total.Upgradation,
		Scope:       scope,
	}
}

// SummaryScope says which rows the headline figures cover.
type SummaryScope string

const (
	// ScopeFiltered figures cover only the rows left after filtering.
	ScopeFiltered SummaryScope = "filtered"
	// ScopeGlobal figures cover the whole program regardless of filters.
	ScopeGlobal SummaryScope = "global"
)

// ParseSummaryScope parses a scope name; the empty string means filtered.
func ParseSummaryScope(s string) (SummaryScope, bool) {
	switch SummaryScope(s) {
	case "", ScopeFiltered:
		return ScopeFiltered, true
	case ScopeGlobal:
		return ScopeGlobal, true
	}
	return "", false
}

// Label returns the caption shown next to the headline figures.
func (s SummaryScope) Label() string {
	if s == ScopeGlobal {
		return "program-wide (unfiltered)"
	}
	return "filtered selection"
}

// Summary holds the three headline figures.
type Summary struct {
	New         int          `json:"new" yaml:"new"`
	Upgradation int          `json:"upgradation" yaml:"upgradation"`
	Combined    int          `json:"combined" yaml:"combined"`
	Scope       SummaryScope `json:"scope" yaml:"scope"`
}

// Payload is the decoded upstream envelope. Rows[0] holds new applications
// and Rows[1] upgradation applications.
type Payload struct {
	ResponseCode string     `json:"response_code"`
	Rows         [][]Record `json:"rows"`

	// Raw is the undecoded body, kept for diagnostics.
	Raw []byte `json:"-"`
}

// Records returns the collection for a dataset, or nil when absent.
func (p *Payload) Records(d Dataset) []Record {
	if p == nil {
		return nil
	}
	idx := 0
	if d == DatasetUpgradation {
		idx = 1
	}
	if idx >= len(p.Rows) {
		return nil
	}
	return p.Rows[idx]
}

// Snapshot is one reconciled fetch: what the cache holds between refreshes.
type Snapshot struct {
	Payload   *Payload     `json:"payload"`
	Table     *ReportTable `json:"table"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Age reports how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}
