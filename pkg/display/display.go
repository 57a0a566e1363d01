// Package display holds the presentation settings shared by the dashboard,
// the downloads, and the CLI. One Options value replaces per-variant
// dashboard copies: theme, filter visibility, zero-row handling, column
// labels, and the scope of the headline figures.
package display

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// Labels are the column headings used in tables and downloads.
type Labels struct {
	District    string `mapstructure:"district" json:"district" yaml:"district"`
	Cluster     string `mapstructure:"cluster" json:"cluster" yaml:"cluster"`
	New         string `mapstructure:"new" json:"new" yaml:"new"`
	Upgradation string `mapstructure:"upgradation" json:"upgradation" yaml:"upgradation"`
}

// DefaultLabels returns the canonical download headings.
func DefaultLabels() Labels {
	return Labels{
		District:    "District",
		Cluster:     "Cluster",
		New:         "New-Homestay-Count",
		Upgradation: "Upgradation-Count",
	}
}

// Header returns the labels in column order.
func (l Labels) Header() []string {
	return []string{l.District, l.Cluster, l.New, l.Upgradation}
}

// withDefaults fills blank labels from DefaultLabels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.District == "" {
		l.District = d.District
	}
	if l.Cluster == "" {
		l.Cluster = d.Cluster
	}
	if l.New == "" {
		l.New = d.New
	}
	if l.Upgradation == "" {
		l.Upgradation = d.Upgradation
	}
	return l
}

// Theme is a named colour palette for the dashboard.
type Theme struct {
	Name          string
	Primary       string
	Subtitle      string
	HeaderBG      string
	TableHeaderBG string
	OddBG         string
	EvenBG        string
	Border        string
	Text          string
}

// DefaultTheme is the theme used when none is configured.
const DefaultTheme = "teal"

var themes = map[string]Theme{
	"teal": {
		Name:          "teal",
		Primary:       "#0B5E6F",
		Subtitle:      "#455A64",
		HeaderBG:      "#E6F7F5",
		TableHeaderBG: "#CFECE9",
		OddBG:         "#FFFFFF",
		EvenBG:        "#F2F8F7",
		Border:        "#E6EDEE",
		Text:          "#0A3C3A",
	},
	"slate": {
		Name:          "slate",
		Primary:       "#263238",
		Subtitle:      "#607D8B",
		HeaderBG:      "#ECEFF1",
		TableHeaderBG: "#CFD8DC",
		OddBG:         "#FFFFFF",
		EvenBG:        "#F5F7F8",
		Border:        "#E0E4E6",
		Text:          "#212121",
	},
	"plain": {
		Name:          "plain",
		Primary:       "#000000",
		Subtitle:      "#555555",
		HeaderBG:      "#FFFFFF",
		TableHeaderBG: "#EEEEEE",
		OddBG:         "#FFFFFF",
		EvenBG:        "#FFFFFF",
		Border:        "#DDDDDD",
		Text:          "#000000",
	},
}

// LookupTheme returns a theme by name.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[name]
	return t, ok
}

// ThemeNames lists the known themes, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures how a report is presented.
type Options struct {
	Title          string                `mapstructure:"title"`
	Subtitle       string                `mapstructure:"subtitle"`
	Theme          string                `mapstructure:"theme"`
	ShowFilters    bool                  `mapstructure:"show_filters"`
	ShowBreakdown  bool                  `mapstructure:"show_breakdown"`
	RemoveZeroRows bool                  `mapstructure:"remove_zero_rows"`
	Labels         Labels                `mapstructure:"column_labels"`
	SummaryScope   homestay.SummaryScope `mapstructure:"summary_scope"`
}

// DefaultOptions returns the standard dashboard presentation.
func DefaultOptions() Options {
	return Options{
		Title:          "Meghalaya Homestay Dashboard",
		Subtitle:       "Government of Meghalaya",
		Theme:          DefaultTheme,
		ShowFilters:    true,
		ShowBreakdown:  false,
		RemoveZeroRows: true,
		Labels:         DefaultLabels(),
		SummaryScope:   homestay.ScopeFiltered,
	}
}

// Normalize fills blanks with defaults and validates the result.
func (o Options) Normalize() (Options, error) {
	d := DefaultOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Subtitle == "" {
		o.Subtitle = d.Subtitle
	}
	if o.Theme == "" {
		o.Theme = d.Theme
	}
	if _, ok := LookupTheme(o.Theme); !ok {
		return o, errors.NewValidationError("display.theme", o.Theme,
			fmt.Sprintf("unknown theme (available: %v)", ThemeNames()))
	}
	scope, ok := homestay.ParseSummaryScope(string(o.SummaryScope))
	if !ok {
		return o, errors.NewValidationError("display.summary_scope", o.SummaryScope, "must be global or filtered")
	}
	o.SummaryScope = scope
	o.Labels = o.Labels.withDefaults()
	return o, nil
}

// Palette returns the configured theme, falling back to the default.
func (o Options) Palette() Theme {
	if t, ok := LookupTheme(o.Theme); ok {
		return t
	}
	return themes[DefaultTheme]
}

var printer = message.NewPrinter(language.Make("en-IN"))

// FormatCount renders a count with digit grouping for headline figures.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
