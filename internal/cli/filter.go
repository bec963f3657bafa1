package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hupe1980/capmatch/internal/config"
	"github.com/hupe1980/capmatch/internal/filter"
	"github.com/hupe1980/capmatch/internal/manifest"
	"github.com/hupe1980/capmatch/internal/value"
)

func newFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Parse and evaluate filter expressions",
		Long: `Work with LDAP-style filter expressions such as

  (&(objectClass=com.example.Log)(level>=3)(!(name=debug*)))`,
	}

	cmd.AddCommand(newFilterParseCommand(), newFilterEvalCommand())

	return cmd
}

func newFilterParseCommand() *cobra.Command {
	var showTree bool

	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Validate a filter and print its canonical form",
		Long: `Parse validates a filter expression and prints its canonical form.
With --tree the parsed expression tree is printed as well.

Syntax errors exit with code 2 and point at the offending position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.Parse(args[0])
			if err != nil {
				return syntaxFailure(cmd, args[0], err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, f.String())

			if showTree {
				writeTree(w, f.Root(), 0)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showTree, "tree", false, "print the parsed expression tree")

	return cmd
}

type evalOptions struct {
	props         []string
	propsFile     string
	caseSensitive bool
	requireMatch  bool
}

func newFilterEvalCommand() *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a filter against a set of properties",
		Long: `Eval evaluates a filter expression against properties given with
--prop name=value (repeatable) or read from a YAML file with --props.

Property names may carry a type suffix understood by manifests, e.g.
--prop level:Long=3 or --prop version:Version=1.2.0. Untyped values
are strings.

Prints "true" or "false". With --require-match a non-matching filter
exits with code 3.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.props, "prop", "p", nil, "property name[:Type]=value (repeatable)")
	f.StringVar(&opts.propsFile, "props", "", "YAML file with properties")
	f.BoolVar(&opts.caseSensitive, "case-sensitive", false, "match attribute names case-sensitively")
	f.BoolVar(&opts.requireMatch, "require-match", false, "exit with code 3 if the filter does not match")

	return cmd
}

func runEval(cmd *cobra.Command, text string, opts *evalOptions) error {
	cache := filter.NewCache(config.FromContext(cmd.Context()).FilterCacheSize)

	f, err := cache.Parse(text)
	if err != nil {
		return syntaxFailure(cmd, text, err)
	}

	props, err := collectProps(opts)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	matched := f.Matches(props)
	if opts.caseSensitive {
		matched = f.MatchesCase(props)
	}

	fmt.Fprintln(cmd.OutOrStdout(), matched)

	if !matched && opts.requireMatch {
		return &ExitError{Code: exitNoMatch, Err: errors.New("filter does not match")}
	}

	return nil
}

// collectProps merges --props file contents with --prop flags. Flags are
// applied last but may not redeclare a file property.
func collectProps(opts *evalOptions) (value.PropertyMap, error) {
	raw := manifest.Attributes{}

	if opts.propsFile != "" {
		data, err := os.ReadFile(opts.propsFile) //nolint:gosec // user-provided properties file
		if err != nil {
			return value.PropertyMap{}, fmt.Errorf("reading properties %q: %w", opts.propsFile, err)
		}

		raw, err = manifest.DecodeAttributesYAML(data)
		if err != nil {
			return value.PropertyMap{}, fmt.Errorf("parsing properties %q: %w", opts.propsFile, err)
		}
	}

	for _, p := range opts.props {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return value.PropertyMap{}, fmt.Errorf("invalid --prop %q: expected name=value", p)
		}

		if _, dup := raw[k]; dup {
			return value.PropertyMap{}, fmt.Errorf("property %q given twice", k)
		}

		raw[k] = v
	}

	return manifest.ParseProperties(raw)
}

// syntaxFailure prints a caret under the offending input position.
func syntaxFailure(cmd *cobra.Command, text string, err error) error {
	var se *filter.SyntaxError
	if errors.As(err, &se) && !config.FromContext(cmd.Context()).Quiet {
		marker := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
		if config.FromContext(cmd.Context()).NoColor {
			marker = lipgloss.NewStyle()
		}

		w := cmd.ErrOrStderr()
		fmt.Fprintln(w, text)
		fmt.Fprintln(w, strings.Repeat(" ", min(se.Offset, len(text)))+marker.Render("^ "+se.Message))
	}

	return classify(err)
}

// writeTree prints n indented by depth.
func writeTree(w io.Writer, n filter.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch t := n.(type) {
	case *filter.And:
		fmt.Fprintf(w, "%sAND\n", indent)

		for _, c := range t.Children {
			writeTree(w, c, depth+1)
		}
	case *filter.Or:
		fmt.Fprintf(w, "%sOR\n", indent)

		for _, c := range t.Children {
			writeTree(w, c, depth+1)
		}
	case *filter.Not:
		fmt.Fprintf(w, "%sNOT\n", indent)
		writeTree(w, t.Child, depth+1)
	case *filter.Present:
		fmt.Fprintf(w, "%sPRESENT %s\n", indent, t.Attr)
	case *filter.Substring:
		fmt.Fprintf(w, "%sSUBSTRING %s %q\n", indent, t.Attr, t.Parts)
	case *filter.Comparison:
		fmt.Fprintf(w, "%sCOMPARE %s %s %q\n", indent, t.Attr, t.Op, t.Value)
	}
}
