// Package config resolves the settings shared by every capmatch command.
//
// A setting is taken from the first source that defines it: command-line
// flag, CAPMATCH_* environment variable, config file, built-in default.
// Without --config the file is looked up as .capmatch.yaml in the working
// directory and then in $HOME/.config/capmatch.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Result formats for query and match output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// DefaultFilterCacheSize is the number of parsed filters kept by default.
const DefaultFilterCacheSize = 256

const (
	envPrefix = "CAPMATCH"
	fileName  = ".capmatch"
)

// Config holds the resolved global settings. The mapstructure tags double
// as flag names, environment suffixes and config file keys.
type Config struct {
	LogLevel  string `mapstructure:"log-level" json:"logLevel"`
	LogFormat string `mapstructure:"log-format" json:"logFormat"`
	NoColor   bool   `mapstructure:"no-color" json:"noColor"`

	// Quiet forces the error log level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	Output string `mapstructure:"output" json:"output"`

	// FilterCacheSize bounds the parsed-filter cache; 0 turns it off.
	FilterCacheSize int `mapstructure:"filter-cache-size" json:"filterCacheSize"`

	// AllowSelf lets a requirement built on the command line match
	// capabilities of its own requiring resource.
	AllowSelf bool `mapstructure:"allow-self" json:"allowSelf"`

	// ConfigFile is the file Load read, if any.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:        LogLevelInfo,
		LogFormat:       LogFormatText,
		Output:          OutputTable,
		FilterCacheSize: DefaultFilterCacheSize,
	}
}

// defaults lists every key viper must know about, so that environment
// variables are honoured even for keys absent from file and flags.
func defaults() map[string]any {
	d := Default()

	return map[string]any{
		"log-level":         d.LogLevel,
		"log-format":        d.LogFormat,
		"no-color":          d.NoColor,
		"quiet":             d.Quiet,
		"output":            d.Output,
		"filter-cache-size": d.FilterCacheSize,
		"allow-self":        d.AllowSelf,
	}
}

// Validate rejects unknown enum values and a negative cache size.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		got     string
		allowed []string
	}{
		{"log level", c.LogLevel, []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}},
		{"log format", c.LogFormat, []string{LogFormatText, LogFormatJSON}},
		{"output", c.Output, []string{OutputTable, OutputJSON, OutputYAML}},
	}

	for _, chk := range checks {
		if !slices.Contains(chk.allowed, chk.got) {
			return fmt.Errorf("invalid %s %q: must be one of %s", chk.name, chk.got, strings.Join(chk.allowed, ", "))
		}
	}

	if c.FilterCacheSize < 0 {
		return fmt.Errorf("invalid filter cache size %d: must not be negative", c.FilterCacheSize)
	}

	return nil
}

// EffectiveLogLevel is LogLevel, or "error" when Quiet is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load resolves the settings for cmd. cmd may be nil, in which case flags
// are ignored. Each call uses its own viper instance.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	for _, fs := range flagSets(cmd) {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readFile reads the explicit file, which must exist, or the first
// discovered one. Finding no file during discovery is not an error.
func readFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", explicit, err)
		}

		return nil
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")

	for _, dir := range searchDirs() {
		v.AddConfigPath(dir)
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}

	return fmt.Errorf("parsing config file: %w", err)
}

func searchDirs() []string {
	dirs := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "capmatch"))
	}

	return dirs
}

// flagSets returns the flags of cmd followed by the persistent flags it
// inherits from each ancestor.
func flagSets(cmd *cobra.Command) []*pflag.FlagSet {
	if cmd == nil {
		return nil
	}

	sets := []*pflag.FlagSet{cmd.Flags()}
	for c := cmd; c != nil; c = c.Parent() {
		sets = append(sets, c.PersistentFlags())
	}

	return sets
}

type ctxKey int

const (
	configKey ctxKey = iota
	configFileKey
)

// NewContext attaches cfg to ctx.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext returns the Config attached to ctx, or Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}

	return Default()
}

// NewContextWithConfigFile attaches the path of the config file in use.
func NewContextWithConfigFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, configFileKey, path)
}

// ConfigFileFromContext returns the attached config file path, or "".
func ConfigFileFromContext(ctx context.Context) string {
	path, _ := ctx.Value(configFileKey).(string)

	return path
}
