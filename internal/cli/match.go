package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/capability"
	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/output"
)

type matchOptions struct {
	queryOptions

	requireMatch bool
	outPath      string
	metrics      bool
}

func newMatchCommand() *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <manifest-or-dir>...",
		Short: "List the capabilities matching a requirement",
		Long: `Match loads manifests into a registry and prints the capabilities in
--namespace that satisfy --filter, ranked by ranking (highest first) and
registration order.

--requirement names the id of the requiring resource; its own
capabilities are then excluded unless --allow-self is set. A saved
query from the config file can be used with --query.

With --require-match the command exits with code 3 when nothing
matched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(runMatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts))
		},
	}

	registerQueryFlags(cmd, &opts.queryOptions)

	f := cmd.Flags()
	f.BoolVar(&opts.requireMatch, "require-match", false, "exit with code 3 if no capability matches")
	f.StringVar(&opts.outPath, "out", "", "write results to a file instead of stdout")
	f.BoolVar(&opts.metrics, "metrics", false, "print registry metrics to stderr")

	return cmd
}

func runMatch(ctx context.Context, stdout, stderr io.Writer, paths []string, opts *matchOptions) error {
	req, err := opts.requirement(ctx)
	if err != nil {
		return err
	}

	s, err := loadSession(ctx, paths)
	if err != nil {
		return err
	}

	entries, err := s.registry.QueryRequirement(req)
	if err != nil {
		return fmt.Errorf("querying %s: %w", req.Namespace(), err)
	}

	s.logger.Info("query complete",
		slog.String("namespace", req.Namespace()),
		slog.Int("matches", len(entries)),
	)

	report := output.ForRequirement("", req, entries)

	if err := render(ctx, stdout, opts.outPath, []output.Report{report}); err != nil {
		return err
	}

	if opts.metrics {
		if err := s.writeMetrics(stderr); err != nil {
			return err
		}
	}

	if opts.requireMatch && !report.Satisfied() {
		return &ExitError{Code: exitNoMatch, Err: errors.New("no capability matches the requirement")}
	}

	return nil
}

// queryOptions describe an ad-hoc requirement given on the command line.
type queryOptions struct {
	namespace string
	filter    string
	query     string
	requirer  string
	effective string
	allowSelf bool
}

// requirement builds the requirement described by the flags, resolving a
// named query from the config file first.
func (o *queryOptions) requirement(ctx context.Context) (*capability.Requirement, error) {
	ns, text := o.namespace, o.filter

	if o.query != "" {
		qc, err := config.LoadQueryConfig(config.ConfigFileFromContext(ctx))
		if err != nil {
			return nil, &ExitError{Code: exitUsage, Err: err}
		}

		q, ok := qc.Lookup(o.query)
		if !ok {
			return nil, &ExitError{Code: exitUsage, Err: fmt.Errorf("unknown query %q", o.query)}
		}

		if ns == "" {
			ns = q.Namespace
		}

		if text == "" {
			text = q.Filter
		}
	}

	if ns == "" {
		return nil, &ExitError{Code: exitUsage, Err: errors.New("--namespace or --query is required")}
	}

	b := capability.NewRequirementBuilder(ns).And(text)

	if o.requirer != "" {
		b.Resource(capability.ResourceRef{ID: o.requirer})
	}

	if o.effective != "" {
		b.Effective(o.effective)
	}

	if o.allowSelf || config.FromContext(ctx).AllowSelf {
		b.AllowSelf()
	}

	req, err := b.Build()
	if err != nil {
		return nil, classify(err)
	}

	return req, nil
}
