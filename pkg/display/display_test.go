package display_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	opts, err := display.Options{Labels: display.Labels{New: "New"}}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "teal", opts.Theme)
	assert.Equal(t, "Meghalaya Homestay Dashboard", opts.Title)
	assert.Equal(t, homestay.ScopeFiltered, opts.SummaryScope)
	assert.Equal(t, []string{"District", "Cluster", "New", "Upgradation-Count"}, opts.Labels.Header())
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	_, err := display.Options{Theme: "neon"}.Normalize()
	assert.True(t, errors.IsValidationError(err))

	_, err = display.Options{SummaryScope: "partial"}.Normalize()
	assert.True(t, errors.IsValidationError(err))
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"plain", "slate", "teal"}, display.ThemeNames())

	teal, ok := display.LookupTheme("teal")
	require.True(t, ok)
	assert.Equal(t, "#0B5E6F", teal.Primary)

	assert.Equal(t, "teal", display.Options{Theme: "missing"}.Palette().Name)
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", display.FormatCount(0))
	assert.Equal(t, "999", display.FormatCount(999))
	assert.Equal(t, "1,234", display.FormatCount(1234))
}
