package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/capability"
)

// registerQueryFlags adds the ad-hoc requirement flags to a cobra command.
func registerQueryFlags(cmd *cobra.Command, opts *queryOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.namespace, "namespace", "n", "", "capability namespace to query")
	f.StringVarP(&opts.filter, "filter", "f", "", "filter expression capabilities must match")
	f.StringVar(&opts.query, "query", "", "named query from the config file")
	f.StringVar(&opts.requirer, "requirement", "", "id of the requiring resource (enables self-exclusion)")
	f.StringVar(&opts.effective, "effective", "", "phase the requirement is resolved in (default resolve)")
	f.BoolVar(&opts.allowSelf, "allow-self", false, "let the requiring resource satisfy itself")

	_ = cmd.RegisterFlagCompletionFunc("query", completeQueryNames)
	_ = cmd.RegisterFlagCompletionFunc("effective", cobra.FixedCompletions(
		[]string{capability.EffectiveResolve, capability.EffectiveActive}, cobra.ShellCompDirectiveNoFileComp))
}
