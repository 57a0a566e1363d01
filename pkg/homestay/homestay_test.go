package homestay_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKeyLess(t *testing.T) {
	a := homestay.GroupKey{District: "East Khasi Hills", Cluster: "Mylliem"}
	b := homestay.GroupKey{District: "East Khasi Hills", Cluster: "Shella"}
	c := homestay.GroupKey{District: "Ri-Bhoi", Cluster: ""}
	lower := homestay.GroupKey{District: "east Khasi Hills"}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(lower), "ordering is case-sensitive")
	assert.Equal(t, "Ri-Bhoi/", c.String())
}

func TestReportTableAccessors(t *testing.T) {
	var empty *homestay.ReportTable
	assert.Equal(t, homestay.AggregateRow{}, empty.Total())
	assert.Nil(t, empty.Body())

	table := &homestay.ReportTable{Rows: []homestay.AggregateRow{
		{District: "TOTAL", New: 4, Upgradation: 2},
		{District: "East Khasi Hills", Cluster: "Mylliem", New: 3, Upgradation: 2},
		{District: "Ri-Bhoi", Cluster: "Umsning", New: 1},
	}}
	assert.Equal(t, "TOTAL", table.Total().District)
	assert.Len(t, table.Body(), 2)

	summary := table.Summary(homestay.ScopeGlobal)
	assert.Equal(t, homestay.Summary{New: 4, Upgradation: 2, Combined: 6, Scope: homestay.ScopeGlobal}, summary)
}

func TestParseSummaryScope(t *testing.T) {
	scope, ok := homestay.ParseSummaryScope("")
	assert.True(t, ok)
	assert.Equal(t, homestay.ScopeFiltered, scope)

	scope, ok = homestay.ParseSummaryScope("global")
	assert.True(t, ok)
	assert.Equal(t, "program-wide (unfiltered)", scope.Label())

	_, ok = homestay.ParseSummaryScope("everything")
	assert.False(t, ok)
}

func TestPayloadDecodeAndRecords(t *testing.T) {
	body := []byte(`{"response_code":"00","rows":[[{"district_name":"Ri-Bhoi","block_cluster":null,"member_id":7}],[]]}`)

	var p homestay.Payload
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Equal(t, "00", p.ResponseCode)
	news := p.Records(homestay.DatasetNew)
	require.Len(t, news, 1)
	assert.Equal(t, "Ri-Bhoi", news[0][homestay.FieldDistrict])
	assert.Nil(t, news[0][homestay.FieldCluster])
	assert.Empty(t, p.Records(homestay.DatasetUpgradation))

	short := &homestay.Payload{Rows: [][]homestay.Record{{}}}
	assert.Nil(t, short.Records(homestay.DatasetUpgradation))
}

func TestSnapshotAge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &homestay.Snapshot{FetchedAt: now.Add(-90 * time.Second)}
	assert.Equal(t, 90*time.Second, s.Age(now))

	var none *homestay.Snapshot
	assert.Zero(t, none.Age(now))
}

func TestAggregateRowHelpers(t *testing.T) {
	row := homestay.AggregateRow{District: "West Garo Hills", Cluster: "Tura", New: 0, Upgradation: 5}
	assert.False(t, row.IsZero())
	assert.Equal(t, 5, row.Count(homestay.DatasetUpgradation))
	assert.Equal(t, 0, row.Count(homestay.DatasetNew))
	assert.Equal(t, homestay.GroupKey{District: "West Garo Hills", Cluster: "Tura"}, row.Key())
	assert.True(t, homestay.AggregateRow{}.IsZero())

	counts := homestay.Counts{row.Key(): 2, {District: "Ri-Bhoi"}: 3}
	assert.Equal(t, 5, counts.Total())
}
