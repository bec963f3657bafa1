package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/output"
)

type resolveOptions struct {
	failUnresolved bool
	outPath        string
	metrics        bool
}

func newResolveCommand() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <manifest-or-dir>...",
		Short: "Find providers for every declared requirement",
		Long: `Resolve loads manifests into a registry and, for every requirement
they declare, prints the ranked capabilities that satisfy it.

Each requirement is matched on its own; resolve does not search for a
consistent assignment across requirements.

With --fail-unresolved the command exits with code 3 when any
requirement has no provider.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(runResolve(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts))
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.failUnresolved, "fail-unresolved", false, "exit with code 3 if a requirement has no provider")
	f.StringVar(&opts.outPath, "out", "", "write results to a file instead of stdout")
	f.BoolVar(&opts.metrics, "metrics", false, "print registry metrics to stderr")

	return cmd
}

func runResolve(ctx context.Context, stdout, stderr io.Writer, paths []string, opts *resolveOptions) error {
	s, err := loadSession(ctx, paths)
	if err != nil {
		return err
	}

	reports, err := s.resolve()
	if err != nil {
		return err
	}

	if err := render(ctx, stdout, opts.outPath, reports); err != nil {
		return err
	}

	if opts.metrics {
		if err := s.writeMetrics(stderr); err != nil {
			return err
		}
	}

	if unresolved := output.Unsatisfied(reports); opts.failUnresolved && len(unresolved) > 0 {
		return &ExitError{Code: exitNoMatch, Err: fmt.Errorf("%d of %d requirements unresolved", len(unresolved), len(reports))}
	}

	return nil
}

// resolve matches every declared requirement against the registry.
func (s *session) resolve() ([]output.Report, error) {
	reports := make([]output.Report, 0, s.requirementCount())

	for _, m := range s.manifests {
		for _, req := range m.Requirements {
			entries, err := s.registry.QueryRequirement(req)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", m.Source, err)
			}

			reports = append(reports, output.ForRequirement(m.Source, req, entries))
		}
	}

	s.logger.Info("resolution complete",
		slog.Int("requirements", len(reports)),
		slog.Int("unresolved", len(output.Unsatisfied(reports))),
	)

	return reports, nil
}
