/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the FieldLens commands: configuration loading,
and logging setup.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/fieldlens/pkg/config"
	"github.com/kleascm/fieldlens/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bind maps a flag onto a config key. Only flags the user sets override other sources.
func bind(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag.Name, err))
	}
}

// LoadConfig resolves the configuration from the config file, environment and flags
func LoadConfig(cmd *cobra.Command, v *viper.Viper) (*config.AnalysisConfig, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SetupLogging creates the logger described by the configuration
func SetupLogging(cfg *config.AnalysisConfig) (*logging.Logger, error) {
	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}
