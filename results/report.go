package results

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ecmatools/run262/types"
	"github.com/ecmatools/run262/ui"
)

// ReportOptions controls the console tree report.
type ReportOptions struct {
	// FailOnly hides directories where every test passed.
	FailOnly bool
	// Colors enables ANSI colors on the pass percentages.
	Colors bool
}

// WriteTreeReport prints one line per directory: the path, passed/total,
// the pass percentage and non-zero outcome counters. Subdirectories are
// expanded only while something above them passes, which keeps wholly
// failing subtrees to a single line.
func WriteTreeReport(w io.Writer, tree *types.ResultTree, opts ReportOptions) {
	root := tree.Root
	for _, name := range root.ChildNames() {
		writeTreeNode(w, root.Children[name], name, opts)
	}
}

func writeTreeNode(w io.Writer, node *types.TreeNode, path string, opts ReportOptions) {
	passed := node.Results[types.OutcomePassed]
	if opts.FailOnly && passed == node.Count {
		return
	}

	var counters strings.Builder
	counters.WriteString("[ ")
	for _, outcome := range types.AllOutcomes {
		if n := node.Results[outcome]; n > 0 {
			fmt.Fprintf(&counters, "%s %-5d ", outcome.Emoji(), n)
		}
	}
	counters.WriteString("]")

	percentage := 0.0
	if node.Count > 0 {
		percentage = float64(passed) / float64(node.Count) * 100
	}
	percent := fmt.Sprintf("(%6.2f%%)", percentage)
	if opts.Colors {
		switch {
		case passed == node.Count:
			percent = text.FgGreen.Sprint(percent)
		case passed == 0:
			percent = text.FgRed.Sprint(percent)
		default:
			percent = text.FgYellow.Sprint(percent)
		}
	}

	pad := 80 - len(path)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(w, "%s%s%5d/%-5d %s %s \n", path, strings.Repeat(" ", pad), passed, node.Count, percent, counters.String())

	if passed > 0 {
		for _, name := range node.ChildNames() {
			writeTreeNode(w, node.Children[name], path+"/"+name, opts)
		}
	}
}

// WriteLegend prints a boxed key mapping each emoji to its outcome name.
func WriteLegend(w io.Writer) {
	const width = 40
	io.WriteString(w, ui.BuildBoxHeader("Legend", width))
	for _, outcome := range types.AllOutcomes {
		io.WriteString(w, ui.BuildBoxLine(fmt.Sprintf("%s  %s", outcome.Emoji(), outcome), width))
	}
	io.WriteString(w, ui.BuildBoxFooter(width))
}

// WriteSummary prints the per-outcome totals as a table.
func WriteSummary(w io.Writer, totals map[types.Outcome]int, total int, duration time.Duration) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Outcome", "Count", "Share"})
	for _, outcome := range types.AllOutcomes {
		n := totals[outcome]
		if n == 0 {
			continue
		}
		share := "-"
		if total > 0 {
			share = fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
		}
		tw.AppendRow(table.Row{fmt.Sprintf("%s %s", outcome.Emoji(), outcome), n, share})
	}
	tw.AppendFooter(table.Row{"Total", total, duration.Round(time.Millisecond)})
	tw.Render()
}
