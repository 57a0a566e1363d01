// Package reconciler turns the two upstream record collections into the
// district/cluster report: count each collection by group, outer-join the
// counts, drop all-zero groups, and prepend a total row.
package reconciler

import (
	"fmt"
	"slices"

	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// KeyFields names the record fields that form a group key.
type KeyFields struct {
	District string
	Cluster  string
}

// DefaultKeyFields returns the upstream field names.
func DefaultKeyFields() KeyFields {
	return KeyFields{
		District: homestay.FieldDistrict,
		Cluster:  homestay.FieldCluster,
	}
}

func (k KeyFields) validate() error {
	if k.District == "" {
		return &errors.ValidationError{Field: "district", Message: "key field name cannot be empty"}
	}
	if k.Cluster == "" {
		return &errors.ValidationError{Field: "cluster", Message: "key field name cannot be empty"}
	}
	return nil
}

// CountByGroup counts records per (district, cluster) pair. Every record is
// counted, whatever its member_id holds. Only observed keys appear in the
// result, and an empty cluster is a group of its own.
func CountByGroup(records []homestay.Record, keys KeyFields, opts ...CountOption) (homestay.Counts, error) {
	if err := keys.validate(); err != nil {
		return nil, err
	}
	o, err := newCountOptions(opts...)
	if err != nil {
		return nil, err
	}

	counts := make(homestay.Counts)
	for i, rec := range records {
		district, err := keyValue(rec, keys.District, false, o.policy)
		if err != nil {
			return nil, malformed(o.dataset, i, keys.District, err)
		}
		cluster, err := keyValue(rec, keys.Cluster, true, o.policy)
		if err != nil {
			return nil, malformed(o.dataset, i, keys.Cluster, err)
		}
		counts[homestay.GroupKey{District: district, Cluster: cluster}]++
	}
	return counts, nil
}

// keyValue reads a grouping field. Non-string values are never coerced.
func keyValue(rec homestay.Record, field string, optional bool, policy MissingFieldPolicy) (string, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		if optional && policy == MissingAsEmpty {
			return "", nil
		}
		return "", errors.NewValidationError(field, nil, "missing or null")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(field, v, fmt.Sprintf("must be a string, got %T", v))
	}
	return s, nil
}

func malformed(dataset homestay.Dataset, index int, field string, err error) error {
	return &errors.MalformedRecordError{
		Dataset: string(dataset),
		Index:   index,
		Field:   field,
		Err:     err,
	}
}

// Reconcile outer-joins the two count maps into a report table. A group
// missing from one side counts 0 there. Body rows are ordered by district,
// then cluster; the total row comes first and sums the body.
func Reconcile(newCounts, upgradationCounts homestay.Counts, opts ...Option) (*homestay.ReportTable, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	if err := checkCounts(homestay.DatasetNew, newCounts); err != nil {
		return nil, err
	}
	if err := checkCounts(homestay.DatasetUpgradation, upgradationCounts); err != nil {
		return nil, err
	}

	keys := make([]homestay.GroupKey, 0, len(newCounts)+len(upgradationCounts))
	for k := range newCounts {
		keys = append(keys, k)
	}
	for k := range upgradationCounts {
		if _, seen := newCounts[k]; !seen {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)

	body := make([]homestay.AggregateRow, 0, len(keys))
	for _, k := range keys {
		row := homestay.AggregateRow{
			District:    k.District,
			Cluster:     k.Cluster,
			New:         newCounts[k],
			Upgradation: upgradationCounts[k],
		}
		if o.removeZeroRows && row.IsZero() {
			continue
		}
		body = append(body, row)
	}

	return withTotal(o.totalLabel, body), nil
}

func checkCounts(dataset homestay.Dataset, counts homestay.Counts) error {
	for k, n := range counts {
		if n < 0 {
			return errors.NewComputationError("reconcile", k.String(), n,
				fmt.Sprintf("negative count in %s dataset", dataset))
		}
	}
	return nil
}

func compareKeys(a, b homestay.GroupKey) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// withTotal prepends a total row summing body.
func withTotal(label string, body []homestay.AggregateRow) *homestay.ReportTable {
	total := homestay.AggregateRow{District: label}
	for _, row := range body {
		total.New += row.New
		total.Upgradation += row.Upgradation
	}
	rows := make([]homestay.AggregateRow, 0, len(body)+1)
	rows = append(rows, total)
	rows = append(rows, body...)
	return &homestay.ReportTable{Rows: rows}
}

// FromPayload counts both collections of a payload and reconciles them.
func FromPayload(p *homestay.Payload, keys KeyFields, policy MissingFieldPolicy, opts ...Option) (*homestay.ReportTable, error) {
	counts := make(map[homestay.Dataset]homestay.Counts, len(homestay.Datasets))
	for _, d := range homestay.Datasets {
		c, err := CountByGroup(p.Records(d), keys, WithDataset(d), WithMissingFieldPolicy(policy))
		if err != nil {
			return nil, err
		}
		counts[d] = c
	}
	return Reconcile(counts[homestay.DatasetNew], counts[homestay.DatasetUpgradation], opts...)
}
