// Package table converts report values into rows for CLI table output.
package table

import (
	"strconv"

	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ReportToTableData converts a report to table rows, total first.
func ReportToTableData(t *homestay.ReportTable, labels display.Labels) Data {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, []string{
			row.District,
			row.Cluster,
			strconv.Itoa(row.New),
			strconv.Itoa(row.Upgradation),
		})
	}
	return Data{
		Headers:         labels.Header(),
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
}

// SummaryToTableData converts the headline figures to a two-column table.
func SummaryToTableData(s homestay.Summary) Data {
	return Data{
		Headers: []string{"Figure", "Count"},
		Rows: [][]string{
			{"New Homestays", display.FormatCount(s.New)},
			{"Upgradations", display.FormatCount(s.Upgradation)},
			{"Total Applications", display.FormatCount(s.Combined)},
		},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// BreakdownToTableData converts one dataset's group counts to a table.
func BreakdownToTableData(rows []reconciler.BreakdownRow, labels display.Labels) Data {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.District, r.Cluster, strconv.Itoa(r.Count)})
	}
	return Data{
		Headers:         []string{labels.District, labels.Cluster, "member_count"},
		Rows:            out,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight},
	}
}
