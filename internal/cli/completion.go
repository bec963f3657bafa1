package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/output"
)

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for capmatch.

To load completions:

Bash:
  $ source <(capmatch completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ capmatch completion bash > /etc/bash_completion.d/capmatch

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ capmatch completion zsh > "${fpath[1]}/_capmatch"

Fish:
  $ capmatch completion fish > ~/.config/fish/completions/capmatch.fish

PowerShell:
  PS> capmatch completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> capmatch completion powershell > capmatch.ps1
  # and source this file from your PowerShell profile.
`,
		// Completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}

// registerFlagCompletions attaches value completion to the global flags.
func registerFlagCompletions(cmd *cobra.Command) {
	fixed := map[string][]string{
		"output":     output.DefaultRegistry(true).Formats(),
		"log-level":  {config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError},
		"log-format": {config.LogFormatText, config.LogFormatJSON},
	}

	for name, values := range fixed {
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
}

// completeQueryNames offers the named queries of the config file given by
// --config, or of .capmatch.yaml in the working directory.
func completeQueryNames(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	path := ".capmatch.yaml"
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		path = f.Value.String()
	}

	qc, err := config.LoadQueryConfig(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return qc.Names(), cobra.ShellCompDirectiveNoFileComp
}
