/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Analysis configuration. Values come from defaults, an optional YAML config
file, FIELDLENS_ environment variables and bound command flags, in increasing order of
precedence, all resolved through viper.
*/

package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/interpretation/builtin"
	"github.com/kleascm/fieldlens/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FIELDLENS_SAMPLE_SIZE
const EnvPrefix = "FIELDLENS"

// Report formats
const (
	ReportFormatJSON = "json"
	ReportFormatYAML = "yaml"
)

// Config keys
const (
	KeyHistogramCap        = "histogram_cap"
	KeyMaxChainDepth       = "max_chain_depth"
	KeySampleSize          = "sample_size"
	KeySamplePolicy        = "sample_policy"
	KeyWorkers             = "workers"
	KeyExampleLimit        = "example_limit"
	KeyStringExampleLength = "string_example_length"
	KeyReportDir           = "report_dir"
	KeyReportFormat        = "report_format"
	KeyLogLevel            = "log.level"
	KeyLogFormat           = "log.format"
	KeyLogOutputDir        = "log.output_dir"
	KeyLogMaxFiles         = "log.max_files"
	KeyLogTimestamp        = "log.timestamp"
	KeyLogCaller           = "log.caller"
	KeyLogColors           = "log.colors"
)

// AnalysisConfig holds every tunable of an analysis run
type AnalysisConfig struct {
	HistogramCap        int                  `mapstructure:"histogram_cap"`
	MaxChainDepth       int                  `mapstructure:"max_chain_depth"`
	SampleSize          int                  `mapstructure:"sample_size"`
	SamplePolicy        string               `mapstructure:"sample_policy"`
	Workers             int                  `mapstructure:"workers"`
	ExampleLimit        int                  `mapstructure:"example_limit"`
	StringExampleLength int                  `mapstructure:"string_example_length"`
	ReportDir           string               `mapstructure:"report_dir"`
	ReportFormat        string               `mapstructure:"report_format"`
	Log                 logging.LoggerConfig `mapstructure:"log"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	opts := builtin.DefaultOptions()
	logDefaults := logging.DefaultLoggerConfig()

	v.SetDefault(KeyHistogramCap, histogram.DefaultCap)
	v.SetDefault(KeyMaxChainDepth, interpretation.DefaultMaxDepth)
	v.SetDefault(KeySampleSize, core.DefaultSampleSize)
	v.SetDefault(KeySamplePolicy, string(interpretation.SamplePolicyMajority))
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyExampleLimit, opts.ExampleLimit)
	v.SetDefault(KeyStringExampleLength, opts.StringExampleLength)
	v.SetDefault(KeyReportDir, "./reports")
	v.SetDefault(KeyReportFormat, ReportFormatJSON)
	v.SetDefault(KeyLogLevel, string(logDefaults.Level))
	v.SetDefault(KeyLogFormat, string(logDefaults.Format))
	v.SetDefault(KeyLogOutputDir, logDefaults.OutputDir)
	v.SetDefault(KeyLogMaxFiles, logDefaults.MaxFiles)
	v.SetDefault(KeyLogTimestamp, logDefaults.Timestamp)
	v.SetDefault(KeyLogCaller, logDefaults.Caller)
	v.SetDefault(KeyLogColors, logDefaults.Colors)
}

// Load resolves the configuration from v. A non-empty configFile is read first; any
// flags must already be bound to v.
func Load(v *viper.Viper, configFile string) (*AnalysisConfig, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AnalysisConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied
func Default() *AnalysisConfig {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		// Defaults always validate
		panic(err)
	}
	return cfg
}

// Validate checks the AnalysisConfig for invalid values
func (c *AnalysisConfig) Validate() error {
	if c.HistogramCap <= 0 {
		return fmt.Errorf("histogram_cap must be positive")
	}
	if c.MaxChainDepth <= 0 {
		return fmt.Errorf("max_chain_depth must be positive")
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive")
	}
	if _, err := interpretation.ParseSamplePolicy(c.SamplePolicy); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.ExampleLimit <= 0 {
		return fmt.Errorf("example_limit must be positive")
	}
	if c.StringExampleLength <= 0 {
		return fmt.Errorf("string_example_length must be positive")
	}
	switch strings.ToLower(c.ReportFormat) {
	case ReportFormatJSON, ReportFormatYAML:
	default:
		return fmt.Errorf("unsupported report format: %s", c.ReportFormat)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	return nil
}

// BuiltinOptions returns the options for the built-in interpretations
func (c *AnalysisConfig) BuiltinOptions() builtin.Options {
	return builtin.Options{
		HistogramCap:        c.HistogramCap,
		ExampleLimit:        c.ExampleLimit,
		StringExampleLength: c.StringExampleLength,
	}
}

// EngineOptions returns the options for the analysis engine
func (c *AnalysisConfig) EngineOptions() core.Options {
	policy, _ := interpretation.ParseSamplePolicy(c.SamplePolicy)
	return core.Options{
		SampleSize:    c.SampleSize,
		SamplePolicy:  policy,
		MaxChainDepth: c.MaxChainDepth,
		Workers:       c.Workers,
		HistogramCap:  c.HistogramCap,
	}
}

// NewRegistry builds and finalizes a registry holding the built-in interpretations
func (c *AnalysisConfig) NewRegistry() (*interpretation.Registry, error) {
	reg := interpretation.NewRegistry()
	if err := builtin.Register(reg, c.BuiltinOptions()); err != nil {
		return nil, err
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return reg, nil
}
