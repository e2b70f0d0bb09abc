/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: root.go
Description: Root command and shared flags for the FieldLens CLI. Persistent flags are
bound to viper keys so they override config file and environment values.
*/

package commands

import (
	"github.com/kleascm/fieldlens/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version of the CLI
const Version = "1.0.0"

// NewRootCommand builds the fieldlens command tree with its own viper instance
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "fieldlens",
		Short: "FieldLens - interpretation-chain schema and metadata inference",
		Long: `FieldLens reads record files, classifies every field through a chain of
interpretations (boolean, number, string, date, sequence, object) and accumulates
bounded per-field metadata such as value histograms. The result is a schema tree and
a report written as JSON or YAML.`,
		Version:      Version,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path (YAML)")
	flags.String("log-level", "", "Logging level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json, custom)")
	flags.String("log-dir", "", "Log output directory (empty logs to the console only)")
	flags.Int("workers", 0, "Number of parallel workers (0 = number of CPUs)")
	flags.Int("histogram-cap", 0, "Distinct values kept per field histogram")
	flags.Int("max-depth", 0, "Maximum interpretation chain length")
	flags.Int("sample-size", 0, "Values sampled per field before fixing its chain")
	flags.String("sample-policy", "", "Chain fixing policy (majority, first-match)")
	flags.String("report-dir", "", "Directory for report files")
	flags.String("report-format", "", "Report format (json, yaml)")

	bind(v, flags.Lookup("log-level"), config.KeyLogLevel)
	bind(v, flags.Lookup("log-format"), config.KeyLogFormat)
	bind(v, flags.Lookup("log-dir"), config.KeyLogOutputDir)
	bind(v, flags.Lookup("workers"), config.KeyWorkers)
	bind(v, flags.Lookup("histogram-cap"), config.KeyHistogramCap)
	bind(v, flags.Lookup("max-depth"), config.KeyMaxChainDepth)
	bind(v, flags.Lookup("sample-size"), config.KeySampleSize)
	bind(v, flags.Lookup("sample-policy"), config.KeySamplePolicy)
	bind(v, flags.Lookup("report-dir"), config.KeyReportDir)
	bind(v, flags.Lookup("report-format"), config.KeyReportFormat)

	rootCmd.AddCommand(
		newAnalyzeCommand(v),
		newClassifyCommand(v),
		newInterpretationsCommand(v),
		newCheckCommand(v),
	)
	return rootCmd
}
