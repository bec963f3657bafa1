package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display the build version and the attribute types and filter operators this binary supports.",
		Args:  cobra.NoArgs,
		// Version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current()

			var (
				text string
				err  error
			)

			switch {
			case jsonOutput:
				text, err = info.JSON()
			case yamlOutput:
				text, err = info.YAML()
			default:
				text = info.String()
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "output version info as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	return cmd
}
