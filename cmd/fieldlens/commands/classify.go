/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classify.go
Description: Classify command. Builds the interpretation chain of a single value and
prints its canonical form, example, statistics and schema node.
*/

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/reporting"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newClassifyCommand(v *viper.Viper) *cobra.Command {
	var (
		raw    bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "classify <value>",
		Short: "Classify one value",
		Long: `Classify parses the argument as JSON and prints the chain of interpretations that
apply to it. Arguments that are not valid JSON, or any argument with --raw, are
classified as plain strings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunClassify(cmd, v, args[0], raw, output)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Treat the argument as a string without JSON parsing")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	return cmd
}

// RunClassify executes the classify command
func RunClassify(cmd *cobra.Command, v *viper.Viper, arg string, raw bool, output string) error {
	cfg, err := LoadConfig(cmd, v)
	if err != nil {
		return err
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	registry, err := cfg.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build interpretation registry: %w", err)
	}
	engine, err := core.NewEngine(registry, cfg.EngineOptions(), logger.FieldLogger())
	if err != nil {
		return err
	}

	value := parseArgument(arg, raw)
	result, err := engine.ClassifyValue(cmd.Context(), value)
	if err != nil {
		return err
	}
	return reporting.Encode(cmd.OutOrStdout(), result, output)
}

// parseArgument decodes arg as a single JSON document, falling back to the string itself
func parseArgument(arg string, raw bool) interface{} {
	if raw {
		return arg
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil || dec.More() {
		return arg
	}
	return value
}
