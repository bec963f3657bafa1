// Package cli implements the cobra command tree for capmatch.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/logging"
)

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
	exitNoMatch = 3
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return exitFailure
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "capmatch",
		Short: "Match requirements against capabilities using LDAP-style filters",
		Long: `capmatch evaluates LDAP-style filter expressions against typed attribute
sets and matches requirements against the capabilities declared in
resource manifests.

Manifests (YAML or TOML) declare a resource with its capabilities,
requirements and services. capmatch loads them into a registry and
answers which capabilities satisfy a requirement, ranked by service
ranking and registration order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: exitUsage, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = config.NewContextWithConfigFile(ctx, cfg.ConfigFile)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("output", cfg.Output),
				slog.Int("filterCacheSize", cfg.FilterCacheSize),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .capmatch.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.StringP("output", "o", config.OutputTable, "result format: table, json, yaml")
	pf.Int("filter-cache-size", config.DefaultFilterCacheSize, "number of parsed filters to cache (0 disables)")

	registerFlagCompletions(cmd)

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitUsage, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newFilterCommand(),
		newMatchCommand(),
		newResolveCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}

// classify maps an error to an ExitError: filter syntax errors are usage
// errors, everything else a failure.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	if errors.Is(err, filter.ErrInvalidSyntax) {
		return &ExitError{Code: exitUsage, Err: err}
	}

	return &ExitError{Code: exitFailure, Err: err}
}
