package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/homestay/internal/cmd/output"
	"github.com/agentstation/homestay/internal/cmd/table"
	"github.com/agentstation/homestay/internal/server"
	"github.com/agentstation/homestay/internal/server/filter"
	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/export"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// NewServeCommand creates the serve command.
func (a *App) NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard, downloads, and JSON API",
		Long: `Start the homestay web server.

Routes:
  /                        dashboard (filter with ?district=&cluster=&summary=)
  /report.csv, /report.xlsx downloads of the current selection
  /api/v1/report           reconciled report as JSON
  /api/v1/districts        district and cluster choices
  /api/v1/refresh          POST to refetch from upstream
  /api/v1/updates/ws       WebSocket refresh notifications
  /api/v1/updates/stream   Server-Sent Events refresh notifications
  /health, /metrics`,
		Example: `  # Start on default port 8080
  homestay serve

  # Bind all interfaces on a custom port
  homestay serve --host 0.0.0.0 --port 3000

  # Allow a separate frontend and protect refresh
  homestay serve --cors-origins https://tourism.example.org --refresh-key s3cret`,
		RunE: a.runServe,
	}

	cmd.Flags().IntP("port", "p", constants.DefaultPort, "Server port")
	cmd.Flags().String("host", constants.DefaultHost, "Bind address")
	cmd.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins (comma-separated); enables CORS")
	cmd.Flags().Int("rate-limit", constants.DefaultRateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().String("refresh-key", "", "Key required by POST /api/v1/refresh")
	cmd.Flags().String("prefix", constants.DefaultPathPrefix, "API path prefix")
	cmd.Flags().Bool("metrics", true, "Enable metrics endpoint")
	cmd.Flags().Duration("shutdown-timeout", constants.DefaultShutdownTimeout, "Graceful shutdown timeout")

	return cmd
}

func (a *App) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	svc, err := a.Service(ctx)
	if err != nil {
		return err
	}

	cfg := a.serverConfig(cmd)
	a.logger.Info().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("refresh_key", cfg.RefreshKey != "").
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", a.config.CacheTTL).
		Str("cache", svc.Store().Backend()).
		Msg("Starting homestay server")

	srv, err := server.New(svc, cfg,
		server.WithLogger(a.logger),
		server.WithBroker(a.broker),
		server.WithGatherer(a.registry),
	)
	if err != nil {
		return errors.WrapResource("create", "server", "", err)
	}

	timeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	return srv.ListenAndServe(ctx, timeout)
}

// serverConfig layers explicitly set flags over the loaded configuration.
func (a *App) serverConfig(cmd *cobra.Command) server.Config {
	cfg := server.DefaultConfig()
	cfg.Host = a.config.Host
	cfg.Port = a.config.Port
	cfg.RateLimit = a.config.RateLimit
	cfg.CORSOrigins = a.config.CORSOrigins
	cfg.RefreshKey = a.config.RefreshKey

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins, _ = flags.GetStringSlice("cors-origins")
	}
	if flags.Changed("refresh-key") {
		cfg.RefreshKey, _ = flags.GetString("refresh-key")
	}
	cfg.PathPrefix, _ = flags.GetString("prefix")
	cfg.MetricsEnabled, _ = flags.GetBool("metrics")
	cfg.CORSEnabled = len(cfg.CORSOrigins) > 0

	return cfg
}

// NewReportCommand creates the report command.
func (a *App) NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch and reconcile once, then print or save the report",
		Long: `Fetch all homestay applications, count them per district and block
cluster, and print the reconciled report with its headline figures.

The report can be narrowed with --district and --cluster. --summary decides
whether the headline figures cover the selection (filtered) or the whole
program (global). --out writes the report to a file instead, in the format
given by its extension (.csv, .xlsx, .json, .yaml).`,
		Example: `  # Print the full report
  homestay report

  # One district, program-wide figures, as JSON
  homestay report --district "East Khasi Hills" --summary global -o json

  # Save a spreadsheet
  homestay report --out homestay_summary.xlsx`,
		Args: cobra.NoArgs,
		RunE: a.runReport,
	}

	cmd.Flags().StringArray("district", nil, "Only include this district (repeatable)")
	cmd.Flags().StringArray("cluster", nil, "Only include this block cluster (repeatable; "+filter.NoCluster+" for records without one)")
	cmd.Flags().String("summary", "", "Headline figure scope: filtered or global (default from display.summary_scope)")
	cmd.Flags().String("out", "", "Write the report to a file (.csv, .xlsx, .json, .yaml)")
	cmd.Flags().Bool("breakdown", false, "Also list each dataset's group counts")

	return cmd
}

// reportOutput is the structured report for json and yaml output.
type reportOutput struct {
	Summary   homestay.Summary                               `json:"summary" yaml:"summary"`
	Total     homestay.AggregateRow                          `json:"total" yaml:"total"`
	Rows      []homestay.AggregateRow                        `json:"rows" yaml:"rows"`
	Breakdown map[homestay.Dataset][]reconciler.BreakdownRow `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	FetchedAt time.Time                                      `json:"fetched_at" yaml:"fetched_at"`
}

func (a *App) runReport(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()

	format, err := output.ParseFormat(string(output.DetectFormat(a.config.Format)))
	if err != nil {
		return err
	}

	svc, err := a.Service(ctx)
	if err != nil {
		return err
	}
	opts := svc.Display()

	query, err := reportQuery(cmd, opts.SummaryScope)
	if err != nil {
		return err
	}

	snap, err := svc.Report(ctx)
	if err != nil {
		return err
	}
	report := query.Apply(snap.Table)

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return a.writeReportFile(out, report, opts.Labels)
	}

	breakdown, _ := cmd.Flags().GetBool("breakdown")
	return a.printReport(format, report, query.Scope, breakdown, opts, snap.FetchedAt)
}

// reportQuery builds the filter from the report flags.
func reportQuery(cmd *cobra.Command, defaultScope homestay.SummaryScope) (filter.ReportQuery, error) {
	districts, _ := cmd.Flags().GetStringArray("district")
	clusters, _ := cmd.Flags().GetStringArray("cluster")
	summary, _ := cmd.Flags().GetString("summary")
	return filter.NewReportQuery(districts, clusters, summary, defaultScope)
}

func (a *App) printReport(format output.Format, report *homestay.ReportTable, scope homestay.SummaryScope,
	breakdown bool, opts display.Options, fetchedAt time.Time) error {
	w := a.out
	formatter := output.NewFormatter(format)

	switch format {
	case output.FormatJSON, output.FormatYAML:
		doc := export.NewDocument(report)
		data := reportOutput{
			Summary:   report.Summary(scope),
			Total:     doc.Total,
			Rows:      doc.Rows,
			FetchedAt: fetchedAt.UTC(),
		}
		if breakdown {
			data.Breakdown = breakdowns(report)
		}
		return formatter.Format(w, data)

	case output.FormatCSV:
		return formatter.Format(w, table.ReportToTableData(report, opts.Labels))
	}

	fmt.Fprintf(w, "%s\n%s (%s)\n\n", opts.Title, opts.Subtitle, scope.Label())
	if err := formatter.Format(w, table.SummaryToTableData(report.Summary(scope))); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := formatter.Format(w, table.ReportToTableData(report, opts.Labels)); err != nil {
		return err
	}
	if breakdown {
		for _, ds := range homestay.Datasets {
			fmt.Fprintf(w, "\n%s\n", ds.Title())
			if err := formatter.Format(w, table.BreakdownToTableData(reconciler.Breakdown(report, ds), opts.Labels)); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "\nFetched at %s\n", fetchedAt.Local().Format(time.RFC1123))
	return nil
}

func breakdowns(report *homestay.ReportTable) map[homestay.Dataset][]reconciler.BreakdownRow {
	out := make(map[homestay.Dataset][]reconciler.BreakdownRow, len(homestay.Datasets))
	for _, ds := range homestay.Datasets {
		rows := reconciler.Breakdown(report, ds)
		if rows == nil {
			rows = []reconciler.BreakdownRow{}
		}
		out[ds] = rows
	}
	return out
}

// writeReportFile saves the report in the format named by the extension.
func (a *App) writeReportFile(path string, report *homestay.ReportTable, labels display.Labels) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "yml" {
		ext = string(export.FormatYAML)
	}
	format, err := export.ParseFormat(ext)
	if err != nil {
		return errors.NewValidationError("out", path, "file extension must be .csv, .xlsx, .json, or .yaml")
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report, labels); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}

	a.logger.Info().
		Str("path", path).
		Str("format", string(format)).
		Int("rows", len(report.Rows)).
		Msg("Report written")
	return nil
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), a)
		},
	}
}

func printVersion(w io.Writer, a *App) {
	fmt.Fprintf(w, "homestay version %s\n", a.version)
	fmt.Fprintf(w, "commit: %s\n", a.commit)
	fmt.Fprintf(w, "built: %s\n", a.date)
	fmt.Fprintf(w, "built by: %s\n", a.builtBy)
	fmt.Fprintf(w, "go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
