package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/logging"
	"github.com/hupe1980/capmatch/internal/output"
	"github.com/hupe1980/capmatch/internal/watch"
)

type watchOptions struct {
	queryOptions

	debounce time.Duration
	showDiff bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <manifest-or-dir>...",
		Short: "Re-resolve whenever manifests change",
		Long: `Watch monitors manifest files and directories and re-runs resolution
whenever they change.

Without --namespace or --query every declared requirement is resolved,
like the resolve command. With them, a single query is run, like the
match command.

After each run watch reports requirements that gained or lost all
providers or whose providers changed. --diff additionally prints a
unified diff of the YAML-rendered results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(runWatch(cmd, args, opts))
		},
	}

	registerQueryFlags(cmd, &opts.queryOptions)

	f := cmd.Flags()
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")
	f.BoolVar(&opts.showDiff, "diff", false, "print a unified diff of the results after each change")

	return cmd
}

func runWatch(cmd *cobra.Command, paths []string, opts *watchOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	single := opts.namespace != "" || opts.query != ""

	// Validate the query up front so that a typo fails fast.
	if single {
		if _, err := opts.requirement(ctx); err != nil {
			return err
		}
	}

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		s, err := loadSession(fnCtx, paths)
		if err != nil {
			return nil, err
		}

		if !single {
			reports, err := s.resolve()
			if err != nil {
				return nil, err
			}

			return &watch.RunResult{Manifests: len(s.manifests), Reports: reports}, nil
		}

		req, err := opts.requirement(fnCtx)
		if err != nil {
			return nil, err
		}

		entries, err := s.registry.QueryRequirement(req)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", req.Namespace(), err)
		}

		return &watch.RunResult{
			Manifests: len(s.manifests),
			Reports:   []output.Report{output.ForRequirement("", req, entries)},
		}, nil
	}

	wopts := watch.DefaultOptions()
	wopts.Paths = paths
	wopts.Debounce = opts.debounce
	wopts.ShowDiff = opts.showDiff
	wopts.Color = !cfg.NoColor
	wopts.Logger = logging.ForComponent(logging.FromContext(ctx), "watch")
	wopts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, wopts, runFn)
}
