/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interpretations.go
Description: Interpretations command. Lists the registered interpretations in dependency
order with their upstreams and metadata schemas.
*/

package commands

import (
	"fmt"
	"strings"

	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newInterpretationsCommand(v *viper.Viper) *cobra.Command {
	var schemas bool

	cmd := &cobra.Command{
		Use:     "interpretations",
		Aliases: []string{"list"},
		Short:   "List registered interpretations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunInterpretations(cmd, v, schemas)
		},
	}

	cmd.Flags().BoolVar(&schemas, "schemas", false, "Print the CUE metadata schema of each interpretation")
	return cmd
}

// RunInterpretations executes the interpretations command
func RunInterpretations(cmd *cobra.Command, v *viper.Viper, schemas bool) error {
	cfg, err := LoadConfig(cmd, v)
	if err != nil {
		return err
	}
	registry, err := cfg.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build interpretation registry: %w", err)
	}
	order, err := registry.DependencyOrder()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, name := range order {
		interp, _ := registry.Lookup(name)
		upstreams := interp.UpstreamNames()
		follows := interpretation.RootName
		if len(upstreams) > 0 {
			follows = strings.Join(upstreams, ", ")
		}
		md := interp.MetadataSchema()
		fmt.Fprintf(out, "%2d. %-10s follows: %-10s metadata: %s\n", i+1, name, follows, md.ID)
		if schemas {
			fmt.Fprintln(out, indent(strings.TrimSpace(md.Source), "      "))
		}
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
