package reconciler

import (
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// MissingFieldPolicy decides what happens when a record lacks a key field
// or carries a null in it.
type MissingFieldPolicy int

const (
	// MissingAsEmpty treats an absent or null cluster as the empty cluster.
	// An absent or null district still rejects the record set.
	MissingAsEmpty MissingFieldPolicy = iota
	// MissingReject rejects the record set when any key field is absent or null.
	MissingReject
)

// String returns the policy name.
func (p MissingFieldPolicy) String() string {
	switch p {
	case MissingAsEmpty:
		return "empty"
	case MissingReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseMissingFieldPolicy parses "empty" (the default for "") or "reject".
func ParseMissingFieldPolicy(s string) (MissingFieldPolicy, error) {
	switch s {
	case "", "empty":
		return MissingAsEmpty, nil
	case "reject":
		return MissingReject, nil
	}
	return MissingAsEmpty, errors.NewValidationError("missing_fields", s, "must be empty or reject")
}

type countOptions struct {
	policy  MissingFieldPolicy
	dataset homestay.Dataset
}

// CountOption configures CountByGroup.
type CountOption func(*countOptions) error

func newCountOptions(opts ...CountOption) (*countOptions, error) {
	o := &countOptions{policy: MissingAsEmpty}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithMissingFieldPolicy sets how absent key fields are treated.
func WithMissingFieldPolicy(policy MissingFieldPolicy) CountOption {
	return func(o *countOptions) error {
		if policy != MissingAsEmpty && policy != MissingReject {
			return &errors.ValidationError{
				Field:   "missing_field_policy",
				Value:   int(policy),
				Message: "unknown policy",
			}
		}
		o.policy = policy
		return nil
	}
}

// WithDataset names the collection being counted so errors can point at it.
func WithDataset(dataset homestay.Dataset) CountOption {
	return func(o *countOptions) error {
		o.dataset = dataset
		return nil
	}
}

// DefaultTotalLabel is the district name of the synthetic total row.
const DefaultTotalLabel = "TOTAL"

type options struct {
	removeZeroRows bool
	totalLabel     string
}

func defaultOptions() *options {
	return &options{
		removeZeroRows: true,
		totalLabel:     DefaultTotalLabel,
	}
}

// Option configures Reconcile.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithRemoveZeroRows controls whether groups with both counts zero are dropped.
func WithRemoveZeroRows(remove bool) Option {
	return func(o *options) error {
		o.removeZeroRows = remove
		return nil
	}
}

// WithTotalLabel sets the district name of the total row.
func WithTotalLabel(label string) Option {
	return func(o *options) error {
		if label == "" {
			return &errors.ValidationError{
				Field:   "total_label",
				Message: "cannot be empty",
			}
		}
		o.totalLabel = label
		return nil
	}
}
