package filter

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

func sampleTable() *homestay.ReportTable {
	return &homestay.ReportTable{Rows: []homestay.AggregateRow{
		{District: "TOTAL", New: 6, Upgradation: 7},
		{District: "East Khasi Hills", Cluster: "Mylliem", New: 3, Upgradation: 2},
		{District: "Ri-Bhoi", Cluster: "Umsning", New: 1},
		{District: "West Garo Hills", Cluster: "", New: 2, Upgradation: 1},
		{District: "West Garo Hills", Cluster: "Tura, Rural", Upgradation: 4},
	}}
}

func TestParseReportQuery(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		districts []string
		clusters  []string
		scope     homestay.SummaryScope
	}{
		{"empty", "/", nil, nil, homestay.ScopeFiltered},
		{"repeated", "/?district=Ri-Bhoi&district=East+Khasi+Hills", []string{"Ri-Bhoi", "East Khasi Hills"}, nil, homestay.ScopeFiltered},
		{"comma is literal", "/?cluster=Mylliem%2C+Upper", nil, []string{"Mylliem, Upper"}, homestay.ScopeFiltered},
		{"no cluster", "/?cluster=%28none%29", nil, []string{""}, homestay.ScopeFiltered},
		{"blank dropped", "/?district=&cluster=", nil, nil, homestay.ScopeFiltered},
		{"global", "/?summary=GLOBAL", nil, nil, homestay.ScopeGlobal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseReportQuery(httptest.NewRequest("GET", tt.target, nil), homestay.ScopeFiltered)
			require.NoError(t, err)
			assert.Equal(t, tt.districts, q.Filter.Districts)
			assert.Equal(t, tt.clusters, q.Filter.Clusters)
			assert.Equal(t, tt.scope, q.Scope)
		})
	}
}

func TestParseReportQueryDefaultScope(t *testing.T) {
	q, err := ParseReportQuery(httptest.NewRequest("GET", "/", nil), homestay.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, homestay.ScopeGlobal, q.Scope)

	q, err = ParseReportQuery(httptest.NewRequest("GET", "/?summary=filtered", nil), homestay.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, homestay.ScopeFiltered, q.Scope)
}

func TestParseReportQueryRejectsUnknownScope(t *testing.T) {
	_, err := ParseReportQuery(httptest.NewRequest("GET", "/?summary=everything", nil), homestay.ScopeFiltered)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestApply(t *testing.T) {
	table := sampleTable()

	t.Run("no filter returns input", func(t *testing.T) {
		q := ReportQuery{Scope: homestay.ScopeFiltered}
		assert.Same(t, table, q.Apply(table))
	})

	t.Run("filtered total", func(t *testing.T) {
		q, err := ParseReportQuery(httptest.NewRequest("GET", "/?district=Ri-Bhoi", nil), homestay.ScopeFiltered)
		require.NoError(t, err)
		got := q.Apply(table)
		require.Len(t, got.Body(), 1)
		assert.Equal(t, 1, got.Total().New)
		assert.Equal(t, 0, got.Total().Upgradation)
	})

	t.Run("global total", func(t *testing.T) {
		q, err := ParseReportQuery(httptest.NewRequest("GET", "/?district=Ri-Bhoi&summary=global", nil), homestay.ScopeFiltered)
		require.NoError(t, err)
		got := q.Apply(table)
		require.Len(t, got.Body(), 1)
		assert.Equal(t, 6, got.Total().New)
		assert.Equal(t, 7, got.Total().Upgradation)
	})

	t.Run("cluster with comma", func(t *testing.T) {
		q, err := ParseReportQuery(httptest.NewRequest("GET", "/?cluster=Tura%2C+Rural", nil), homestay.ScopeFiltered)
		require.NoError(t, err)
		got := q.Apply(table)
		require.Len(t, got.Body(), 1)
		assert.Equal(t, "Tura, Rural", got.Body()[0].Cluster)
		assert.Equal(t, 4, got.Total().Upgradation)
	})

	t.Run("empty cluster", func(t *testing.T) {
		q, err := ParseReportQuery(httptest.NewRequest("GET", "/?cluster=(none)", nil), homestay.ScopeFiltered)
		require.NoError(t, err)
		got := q.Apply(table)
		require.Len(t, got.Body(), 1)
		assert.Equal(t, homestay.AggregateRow{District: "West Garo Hills", New: 2, Upgradation: 1}, got.Body()[0])
		assert.Equal(t, 2, got.Total().New)
	})
}

func TestNewReportQuery(t *testing.T) {
	q, err := NewReportQuery([]string{" Ri-Bhoi ", ""}, []string{NoCluster, "Umsning"}, "", homestay.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ri-Bhoi"}, q.Filter.Districts)
	assert.Equal(t, []string{"", "Umsning"}, q.Filter.Clusters)
	assert.Equal(t, homestay.ScopeGlobal, q.Scope)

	q, err = NewReportQuery(nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, homestay.ScopeFiltered, q.Scope)

	_, err = NewReportQuery(nil, nil, "nope", homestay.ScopeFiltered)
	assert.True(t, errors.IsValidationError(err))
}

func TestEncode(t *testing.T) {
	q := ReportQuery{Scope: homestay.ScopeGlobal}
	q.Filter.Districts = []string{"Ri-Bhoi"}
	q.Filter.Clusters = []string{"Umsning"}
	assert.Equal(t, "cluster=Umsning&district=Ri-Bhoi&summary=global", q.Encode())

	assert.Empty(t, ReportQuery{Scope: homestay.ScopeFiltered}.Encode())

	q = ReportQuery{Scope: homestay.ScopeFiltered}
	q.Filter.Clusters = []string{"", "Tura, Rural"}
	assert.Equal(t, "cluster=%28none%29&cluster=Tura%2C+Rural", q.Encode())

	back, err := ParseReportQuery(httptest.NewRequest("GET", "/?"+q.Encode(), nil), homestay.ScopeFiltered)
	require.NoError(t, err)
	assert.Equal(t, q.Filter.Clusters, back.Filter.Clusters)
}
