package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

func TestReportToTableData(t *testing.T) {
	report := &homestay.ReportTable{Rows: []homestay.AggregateRow{
		{District: "TOTAL", New: 4, Upgradation: 2},
		{District: "East Khasi Hills", Cluster: "Mylliem", New: 3, Upgradation: 2},
		{District: "Ri-Bhoi", Cluster: "Umsning", New: 1},
	}}

	got := ReportToTableData(report, display.DefaultLabels())

	want := [][]string{
		{"TOTAL", "", "4", "2"},
		{"East Khasi Hills", "Mylliem", "3", "2"},
		{"Ri-Bhoi", "Umsning", "1", "0"},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"District", "Cluster", "New-Homestay-Count", "Upgradation-Count"}, got.Headers)
	assert.Len(t, got.ColumnAlignment, 4)
}

func TestSummaryToTableData(t *testing.T) {
	got := SummaryToTableData(homestay.Summary{New: 1234, Upgradation: 2, Combined: 1236})
	assert.Equal(t, []string{"New Homestays", "1,234"}, got.Rows[0])
	assert.Equal(t, []string{"Total Applications", "1,236"}, got.Rows[2])
}

func TestBreakdownToTableData(t *testing.T) {
	got := BreakdownToTableData([]reconciler.BreakdownRow{
		{District: "Ri-Bhoi", Cluster: "Umsning", Count: 1},
	}, display.DefaultLabels())
	assert.Equal(t, [][]string{{"Ri-Bhoi", "Umsning", "1"}}, got.Rows)
	assert.Equal(t, "member_count", got.Headers[2])
}
