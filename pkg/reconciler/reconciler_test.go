package reconciler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

func rec(district string, cluster any, member any) homestay.Record {
	return homestay.Record{
		homestay.FieldDistrict: district,
		homestay.FieldCluster:  cluster,
		homestay.FieldMember:   member,
	}
}

func key(district, cluster string) homestay.GroupKey {
	return homestay.GroupKey{District: district, Cluster: cluster}
}

func workedExample() (news, upgrades []homestay.Record) {
	news = []homestay.Record{
		rec("East Khasi Hills", "Mylliem", 1),
		rec("East Khasi Hills", "Mylliem", 2),
		rec("East Khasi Hills", "Mylliem", 3),
		rec("Ri-Bhoi", "Umsning", 4),
	}
	upgrades = []homestay.Record{
		rec("East Khasi Hills", "Mylliem", 5),
		rec("East Khasi Hills", "Mylliem", 6),
	}
	return news, upgrades
}

func TestCountByGroup(t *testing.T) {
	news, _ := workedExample()

	counts, err := reconciler.CountByGroup(news, reconciler.DefaultKeyFields())
	require.NoError(t, err)

	want := homestay.Counts{
		key("East Khasi Hills", "Mylliem"): 3,
		key("Ri-Bhoi", "Umsning"):          1,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("CountByGroup() mismatch (-want +got):\n%s", diff)
	}
}

func TestCountByGroupCountsNullMembers(t *testing.T) {
	records := []homestay.Record{
		rec("Ri-Bhoi", "Umsning", nil),
		{homestay.FieldDistrict: "Ri-Bhoi", homestay.FieldCluster: "Umsning"},
	}
	counts, err := reconciler.CountByGroup(records, reconciler.DefaultKeyFields())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[key("Ri-Bhoi", "Umsning")])
}

func TestCountByGroupEmptyCluster(t *testing.T) {
	records := []homestay.Record{
		rec("West Garo Hills", "", 1),
		rec("West Garo Hills", nil, 2),
		{homestay.FieldDistrict: "West Garo Hills", homestay.FieldMember: 3},
		rec("West Garo Hills", "Tura", 4),
	}

	counts, err := reconciler.CountByGroup(records, reconciler.DefaultKeyFields())
	require.NoError(t, err)
	assert.Equal(t, homestay.Counts{
		key("West Garo Hills", ""):     3,
		key("West Garo Hills", "Tura"): 1,
	}, counts)
}

func TestCountByGroupMissingFieldPolicy(t *testing.T) {
	records := []homestay.Record{
		rec("West Garo Hills", "Tura", 1),
		rec("West Garo Hills", nil, 2),
	}

	_, err := reconciler.CountByGroup(records, reconciler.DefaultKeyFields(),
		reconciler.WithMissingFieldPolicy(reconciler.MissingReject),
		reconciler.WithDataset(homestay.DatasetUpgradation))
	require.Error(t, err)

	var mre *errors.MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, "upgradation", mre.Dataset)
	assert.Equal(t, 1, mre.Index)
	assert.Equal(t, homestay.FieldCluster, mre.Field)

	_, err = reconciler.CountByGroup(records, reconciler.DefaultKeyFields(),
		reconciler.WithMissingFieldPolicy(reconciler.MissingFieldPolicy(9)))
	assert.True(t, errors.IsValidationError(err))
}

func TestCountByGroupRejectsMissingDistrict(t *testing.T) {
	records := []homestay.Record{{homestay.FieldCluster: "Tura"}}
	_, err := reconciler.CountByGroup(records, reconciler.DefaultKeyFields())

	var mre *errors.MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, homestay.FieldDistrict, mre.Field)
	assert.Equal(t, 0, mre.Index)
}

func TestCountByGroupRejectsNonStringKeys(t *testing.T) {
	tests := []struct {
		name   string
		record homestay.Record
		field  string
	}{
		{"numeric district", homestay.Record{homestay.FieldDistrict: 42.0, homestay.FieldCluster: "y"}, homestay.FieldDistrict},
		{"bool cluster", rec("Ri-Bhoi", true, 1), homestay.FieldCluster},
		{"object cluster", rec("Ri-Bhoi", map[string]any{"name": "Umsning"}, 1), homestay.FieldCluster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconciler.CountByGroup([]homestay.Record{tt.record}, reconciler.DefaultKeyFields())
			require.Error(t, err)

			var mre *errors.MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, tt.field, mre.Field)

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Message, "must be a string")
		})
	}
}

func TestCountByGroupInvalidKeyFields(t *testing.T) {
	_, err := reconciler.CountByGroup(nil, reconciler.KeyFields{District: "district_name"})
	assert.True(t, errors.IsValidationError(err))
}

func TestReconcileWorkedExample(t *testing.T) {
	news, upgrades := workedExample()
	newCounts, err := reconciler.CountByGroup(news, reconciler.DefaultKeyFields())
	require.NoError(t, err)
	upgradeCounts, err := reconciler.CountByGroup(upgrades, reconciler.DefaultKeyFields())
	require.NoError(t, err)

	table, err := reconciler.Reconcile(newCounts, upgradeCounts)
	require.NoError(t, err)

	want := []homestay.AggregateRow{
		{District: "TOTAL", Cluster: "", New: 4, Upgradation: 2},
		{District: "East Khasi Hills", Cluster: "Mylliem", New: 3, Upgradation: 2},
		{District: "Ri-Bhoi", Cluster: "Umsning", New: 1, Upgradation: 0},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("Reconcile() mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileEmptyInputs(t *testing.T) {
	table, err := reconciler.Reconcile(homestay.Counts{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []homestay.AggregateRow{{District: "TOTAL"}}, table.Rows)
	assert.Empty(t, table.Body())
}

func TestReconcileRemovesZeroRows(t *testing.T) {
	newCounts := homestay.Counts{key("A", "x"): 0, key("B", "y"): 2}
	upgradeCounts := homestay.Counts{key("A", "x"): 0}

	table, err := reconciler.Reconcile(newCounts, upgradeCounts)
	require.NoError(t, err)
	assert.Equal(t, []homestay.AggregateRow{
		{District: "TOTAL", New: 2},
		{District: "B", Cluster: "y", New: 2},
	}, table.Rows)

	kept, err := reconciler.Reconcile(newCounts, upgradeCounts, reconciler.WithRemoveZeroRows(false))
	require.NoError(t, err)
	assert.Len(t, kept.Body(), 2)
	assert.Equal(t, homestay.AggregateRow{District: "A", Cluster: "x"}, kept.Body()[0])
}

func TestReconcileOrdering(t *testing.T) {
	newCounts := homestay.Counts{
		key("ri-bhoi", "a"):         1,
		key("Ri-Bhoi", "Umsning"):   1,
		key("Ri-Bhoi", ""):          1,
		key("East Jaintia", "Khli"): 1,
	}
	upgradeCounts := homestay.Counts{key("East Garo", "Songsak"): 1}

	table, err := reconciler.Reconcile(newCounts, upgradeCounts)
	require.NoError(t, err)

	var got []homestay.GroupKey
	for _, row := range table.Body() {
		got = append(got, row.Key())
	}
	assert.Equal(t, []homestay.GroupKey{
		key("East Garo", "Songsak"),
		key("East Jaintia", "Khli"),
		key("Ri-Bhoi", ""),
		key("Ri-Bhoi", "Umsning"),
		key("ri-bhoi", "a"),
	}, got)
}

func TestReconcileRejectsNegativeCounts(t *testing.T) {
	_, err := reconciler.Reconcile(homestay.Counts{key("A", "x"): 1}, homestay.Counts{key("A", "x"): -1})
	require.Error(t, err)
	assert.True(t, errors.IsComputationError(err))

	var ce *errors.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "A/x", ce.Key)
	assert.Equal(t, -1, ce.Value)
}

func TestReconcileTotalLabel(t *testing.T) {
	table, err := reconciler.Reconcile(homestay.Counts{key("A", ""): 1}, nil, reconciler.WithTotalLabel("Grand Total"))
	require.NoError(t, err)
	assert.Equal(t, "Grand Total", table.Total().District)

	_, err = reconciler.Reconcile(nil, nil, reconciler.WithTotalLabel(""))
	assert.True(t, errors.IsValidationError(err))
}

func TestReconcileProperties(t *testing.T) {
	newCounts := homestay.Counts{
		key("East Khasi Hills", "Mylliem"):   7,
		key("East Khasi Hills", ""):          2,
		key("West Jaintia Hills", "Amlarem"): 1,
	}
	upgradeCounts := homestay.Counts{
		key("East Khasi Hills", "Mylliem"):         3,
		key("South West Khasi Hills", "Mawkyrwat"): 4,
	}

	table, err := reconciler.Reconcile(newCounts, upgradeCounts)
	require.NoError(t, err)

	t.Run("per-key counts match inputs", func(t *testing.T) {
		for _, row := range table.Body() {
			assert.Equal(t, newCounts[row.Key()], row.New, row.Key().String())
			assert.Equal(t, upgradeCounts[row.Key()], row.Upgradation, row.Key().String())
		}
		assert.Len(t, table.Body(), 4)
	})

	t.Run("body sums equal total", func(t *testing.T) {
		var n, u int
		for _, row := range table.Body() {
			n += row.New
			u += row.Upgradation
		}
		assert.Equal(t, homestay.AggregateRow{District: "TOTAL", New: n, Upgradation: u}, table.Total())
		assert.Equal(t, newCounts.Total(), n)
		assert.Equal(t, upgradeCounts.Total(), u)
	})

	t.Run("no all-zero body rows", func(t *testing.T) {
		for _, row := range table.Body() {
			assert.False(t, row.IsZero())
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		again, err := reconciler.Reconcile(newCounts, upgradeCounts)
		require.NoError(t, err)
		if diff := cmp.Diff(table, again); diff != "" {
			t.Errorf("second run differs (-first +second):\n%s", diff)
		}
	})
}

func TestFromPayload(t *testing.T) {
	news, upgrades := workedExample()
	p := &homestay.Payload{ResponseCode: "00", Rows: [][]homestay.Record{news, upgrades}}

	table, err := reconciler.FromPayload(p, reconciler.DefaultKeyFields(), reconciler.MissingAsEmpty)
	require.NoError(t, err)
	assert.Equal(t, homestay.AggregateRow{District: "TOTAL", New: 4, Upgradation: 2}, table.Total())

	bad := &homestay.Payload{Rows: [][]homestay.Record{news, {rec("Ri-Bhoi", 12.0, 1)}}}
	_, err = reconciler.FromPayload(bad, reconciler.DefaultKeyFields(), reconciler.MissingAsEmpty)

	var mre *errors.MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, "upgradation", mre.Dataset)
}

func TestParseMissingFieldPolicy(t *testing.T) {
	for in, want := range map[string]reconciler.MissingFieldPolicy{
		"":       reconciler.MissingAsEmpty,
		"empty":  reconciler.MissingAsEmpty,
		"reject": reconciler.MissingReject,
	} {
		got, err := reconciler.ParseMissingFieldPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}

	_, err := reconciler.ParseMissingFieldPolicy("drop")
	assert.True(t, errors.IsValidationError(err))
}
