/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Check command. Validates the resolved configuration and finalizes the
interpretation registry without reading any data.
*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCheckCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and the interpretation registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunCheck(cmd, v)
		},
	}
}

// RunCheck executes the check command
func RunCheck(cmd *cobra.Command, v *viper.Viper) error {
	out := cmd.OutOrStdout()

	cfg, err := LoadConfig(cmd, v)
	if err != nil {
		fmt.Fprintf(out, "❌ Configuration invalid: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "✅ Configuration valid")
	fmt.Fprintf(out, "   Sample: %d values, policy %s\n", cfg.SampleSize, cfg.SamplePolicy)
	fmt.Fprintf(out, "   Histogram cap: %d, max chain depth: %d, workers: %d\n",
		cfg.HistogramCap, cfg.MaxChainDepth, cfg.Workers)
	fmt.Fprintf(out, "   Reports: %s (%s)\n", cfg.ReportDir, cfg.ReportFormat)

	registry, err := cfg.NewRegistry()
	if err != nil {
		fmt.Fprintf(out, "❌ Interpretation registry invalid: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "✅ Interpretation registry finalized: %d interpretations\n", registry.Len())
	return nil
}
