package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/daryltucker/tag-runner/internal/model"
)

const summaryWidth = 100

var rule = strings.Repeat("=", 60)

// PrintSummary writes a short human-readable view of run to w. Only the
// phases present in the record are shown.
func PrintSummary(w io.Writer, run *model.TestRun) {
	fmt.Fprintf(w, "\n%s\nRESULTS SUMMARY (%s)\n%s\n", rule, run.Model, rule)

	if run.Tests.DetailedSingle != nil {
		fmt.Fprintln(w, "\nTEST 1 - Detailed analysis (sample):")
		for _, e := range run.Tests.DetailedSingle {
			fmt.Fprintf(w, "\n  %s:\n", filepath.Base(e.Image))
			fmt.Fprintf(w, "    Generic tags: %s\n", preview(e.Analyses.GenericTags))
		}
	}
	if run.Tests.QuickAll != nil {
		fmt.Fprintln(w, "\nTEST 2 - Quick analysis:")
		fmt.Fprintf(w, "  Processed %d photos (%d failed)\n", len(run.Tests.QuickAll), failedQuick(run.Tests.QuickAll))
	}
	if g := run.Tests.GroupNoContext; g != nil {
		fmt.Fprintln(w, "\nTEST 3 - Group without context:")
		fmt.Fprintf(w, "  Common tags: %s\n", preview(g.GroupAnalysis))
	}
	if g := run.Tests.GroupWithContext; g != nil {
		fmt.Fprintln(w, "\nTEST 4 - Group with context:")
		fmt.Fprintf(w, "  Context: %s\n", g.ContextHint)
		fmt.Fprintf(w, "  Common tags: %s\n", preview(g.GroupAnalysis))
	}
}

func preview(o model.Outcome) string {
	if !o.Success {
		return "N/A (" + o.Error + ")"
	}
	return Truncate(o.Response, summaryWidth)
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func failedQuick(entries []model.QuickEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Tags.Success {
			n++
		}
	}
	return n
}
