package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// TableFormatter renders each report as a heading followed by a table of
// its results.
type TableFormatter struct {
	noColor bool

	heading lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	empty   lipgloss.Style
}

// NewTableFormatter creates a table formatter. With noColor set, output is
// plain ASCII.
func NewTableFormatter(noColor bool) *TableFormatter {
	tf := &TableFormatter{
		noColor: noColor,
		heading: lipgloss.NewStyle(),
		header:  lipgloss.NewStyle().Padding(0, 1),
		cell:    lipgloss.NewStyle().Padding(0, 1),
		empty:   lipgloss.NewStyle(),
	}

	if !noColor {
		tf.heading = tf.heading.Bold(true).Foreground(lipgloss.Color("39"))
		tf.header = tf.header.Bold(true).Foreground(lipgloss.Color("214"))
		tf.empty = tf.empty.Italic(true).Foreground(lipgloss.Color("242"))
	}

	return tf
}

// Format implements Formatter.
func (tf *TableFormatter) Format(w io.Writer, reports []Report) error {
	var sb strings.Builder

	for i, r := range reports {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(tf.heading.Render(heading(r)))
		sb.WriteString("\n")

		if !r.Satisfied() {
			sb.WriteString(tf.empty.Render("no matching capabilities"))
			sb.WriteString("\n")

			continue
		}

		sb.WriteString(tf.render(r.Results))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func (tf *TableFormatter) render(results []Result) string {
	border := lipgloss.NormalBorder()
	if tf.noColor {
		border = lipgloss.ASCIIBorder()
	}

	t := table.New().
		Border(border).
		Headers("ID", "RANKING", "RESOURCE", "ATTRIBUTES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tf.header
			}

			return tf.cell
		})

	for _, res := range results {
		resource := ""
		if res.Resource != nil {
			resource = res.Resource.String()
		}

		t.Row(
			strconv.FormatUint(res.ID, 10),
			strconv.FormatInt(int64(res.Ranking), 10),
			resource,
			formatAttributes(res.Attributes),
		)
	}

	return t.String()
}

func heading(r Report) string {
	var sb strings.Builder

	if r.Source != "" {
		sb.WriteString(r.Source)
		sb.WriteString(": ")
	}

	sb.WriteString(r.Namespace)

	if r.Filter != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Filter)
	}

	fmt.Fprintf(&sb, " (%d %s)", len(r.Results), plural(len(r.Results), "match", "matches"))

	return sb.String()
}

// formatAttributes renders attributes as "k=v" pairs in key order.
func formatAttributes(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}

	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
