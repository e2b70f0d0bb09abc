/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyze.go
Description: Analyze command. Reads record files, runs the two-pass analysis and writes
the report, optionally with an HTML dashboard.
*/

package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/monitoring"
	"github.com/kleascm/fieldlens/pkg/reporting"
	"github.com/kleascm/fieldlens/pkg/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAnalyzeCommand(v *viper.Viper) *cobra.Command {
	var (
		inputFormat  string
		fetchTimeout time.Duration
		dashboard    bool
		stdout       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file|url>...",
		Short: "Infer the schema and field metadata of record files",
		Long: `Analyze reads NDJSON, JSON, YAML or CSV records from files or http(s) URLs.
Every input is one shard: fields are sampled across all inputs to fix their
interpretation chains, then every value is streamed into per-shard accumulators that
are merged into the final metadata.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunAnalyze(cmd, v, args, inputFormat, fetchTimeout, dashboard, stdout)
		},
	}

	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Record format (ndjson, json, yaml, csv); detected from the extension when empty")
	cmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", source.DefaultFetchTimeout, "Timeout for downloading URL inputs")
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "Also write an HTML dashboard to the report directory")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the report instead of writing a file")
	return cmd
}

// RunAnalyze executes the analyze command
func RunAnalyze(cmd *cobra.Command, v *viper.Viper, inputs []string, inputFormat string, fetchTimeout time.Duration, dashboard, stdout bool) error {
	cfg, err := LoadConfig(cmd, v)
	if err != nil {
		return err
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	var format source.Format
	if inputFormat != "" {
		if format, err = source.ParseFormat(inputFormat); err != nil {
			return err
		}
	}
	sources := make([]source.Source, 0, len(inputs))
	for _, input := range inputs {
		src, err := source.OpenLocation(input, format, fetchTimeout)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	registry, err := cfg.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build interpretation registry: %w", err)
	}
	engine, err := core.NewEngine(registry, cfg.EngineOptions(), logger.FieldLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if !stdout {
		fmt.Fprintf(out, "🔎 Analyzing %d input(s) with %d worker(s)\n", len(inputs), cfg.Workers)
	}

	collector := monitoring.NewCollector(monitoring.DefaultInterval, logger.FieldLogger())
	engine.AddReporter(collector)
	if err := collector.Start(ctx); err != nil {
		return err
	}
	report, err := engine.Analyze(ctx, sources...)
	if stopErr := collector.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if stdout {
		return reporting.Encode(out, report, cfg.ReportFormat)
	}

	writer, err := reporting.NewWriter(cfg.ReportDir, cfg.ReportFormat, logger.FieldLogger())
	if err != nil {
		return err
	}
	path, err := writer.Write(report)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "📊 Records: %d, fields: %d, failed: %d, took %v\n",
		report.Records, len(report.Fields), report.Failed(), report.Duration)
	if report.InvalidRecords > 0 {
		fmt.Fprintf(out, "⚠️  Skipped %d undecodable records\n", report.InvalidRecords)
	}
	metrics := collector.Metrics()
	fmt.Fprintf(out, "🧠 Peak heap: %s, rejected values: %d, warnings: %d\n",
		monitoring.FormatBytes(metrics.PeakHeapAlloc), metrics.RejectedValues, metrics.Warnings)
	for _, f := range report.Fields {
		if f.Error != "" {
			fmt.Fprintf(out, "❌ %s: %s\n", f.Path, f.Error)
		}
	}
	fmt.Fprintf(out, "📄 Report: %s\n", path)

	if dashboard {
		html, err := reporting.NewDashboardGenerator(cfg.ReportDir, logger.FieldLogger()).GenerateDashboard(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "🌐 Dashboard: %s\n", html)
	}
	return nil
}
