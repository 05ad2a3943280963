package results

import (
	"fmt"
	"io"
	"sort"

	"github.com/ecmatools/run262/types"
)

// OutcomeChange records a file whose outcome differs between two runs.
type OutcomeChange struct {
	Old types.Outcome
	New types.Outcome
}

// Diff is the comparison of two per-file result documents.
type Diff struct {
	DurationDelta float64
	New           map[string]types.Outcome
	Removed       map[string]types.Outcome
	Changed       map[string]OutcomeChange
}

// CompareFiles loads two per-file result documents and compares them.
func CompareFiles(oldPath, newPath string) (*Diff, error) {
	oldDoc, oldFlat, err := LoadFlatDocument(oldPath)
	if err != nil {
		return nil, err
	}
	newDoc, newFlat, err := LoadFlatDocument(newPath)
	if err != nil {
		return nil, err
	}
	diff := Compare(oldFlat, newFlat)
	diff.DurationDelta = newDoc.Duration - oldDoc.Duration
	return diff, nil
}

// Compare builds the per-file diff of two outcome maps.
func Compare(oldRun, newRun map[string]types.Outcome) *Diff {
	d := &Diff{
		New:     make(map[string]types.Outcome),
		Removed: make(map[string]types.Outcome),
		Changed: make(map[string]OutcomeChange),
	}
	for file, oldOutcome := range oldRun {
		newOutcome, ok := newRun[file]
		switch {
		case !ok:
			d.Removed[file] = oldOutcome
		case oldOutcome != newOutcome:
			d.Changed[file] = OutcomeChange{Old: oldOutcome, New: newOutcome}
		}
	}
	for file, outcome := range newRun {
		if _, ok := oldRun[file]; !ok {
			d.New[file] = outcome
		}
	}
	return d
}

// Regressions returns the changed files that went from passing to anything
// else.
func (d *Diff) Regressions() map[string]OutcomeChange {
	out := make(map[string]OutcomeChange)
	for file, change := range d.Changed {
		if change.Old == types.OutcomePassed {
			out[file] = change
		}
	}
	return out
}

func (d *Diff) HasRegressions() bool {
	for _, change := range d.Changed {
		if change.Old == types.OutcomePassed {
			return true
		}
	}
	return false
}

// WriteRegressions lists only the passing-to-failing files.
func (d *Diff) WriteRegressions(w io.Writer) {
	regressions := d.Regressions()
	width := longestPath(regressions, nil, nil)
	for _, file := range sortedChangeKeys(regressions) {
		change := regressions[file]
		fmt.Fprintf(w, "    %-*s %s -> %s\n", width, file, change.Old.Emoji(), change.New.Emoji())
	}
}

// WriteFull prints the duration delta, the per-outcome summary deltas and
// the per-file listings for new, removed and changed tests.
func (d *Diff) WriteFull(w io.Writer) {
	fmt.Fprintf(w, "Duration:\n    %+.2fs\n", d.DurationDelta)
	if len(d.New) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 {
		return
	}

	fmt.Fprintf(w, "\nSummary:\n")
	if len(d.New) > 0 {
		fmt.Fprintf(w, "    New Tests:\n        ")
		writeSummaryDeltas(w, countOutcomes(d.New))
	}
	if len(d.Removed) > 0 {
		fmt.Fprintf(w, "    Removed Tests:\n        ")
		writeSummaryDeltas(w, countOutcomes(d.Removed))
	}
	if len(d.Changed) > 0 {
		deltas := make(map[types.Outcome]int)
		for _, change := range d.Changed {
			deltas[change.Old]--
			deltas[change.New]++
		}
		fmt.Fprintf(w, "    Changed Tests:\n        ")
		writeSummaryDeltas(w, deltas)
	}
	fmt.Fprintln(w)

	width := longestPath(d.Changed, d.New, d.Removed)
	if len(d.New) > 0 {
		fmt.Fprintln(w, "New Tests:")
		for _, file := range sortedOutcomeKeys(d.New) {
			fmt.Fprintf(w, "    %-*s %s\n", width, file, d.New[file].Emoji())
		}
		fmt.Fprintln(w)
	}
	if len(d.Removed) > 0 {
		fmt.Fprintln(w, "Removed Tests:")
		for _, file := range sortedOutcomeKeys(d.Removed) {
			fmt.Fprintf(w, "    %-*s %s\n", width, file, d.Removed[file].Emoji())
		}
		fmt.Fprintln(w)
	}
	if len(d.Changed) > 0 {
		fmt.Fprintln(w, "Changed Tests:")
		for _, file := range sortedChangeKeys(d.Changed) {
			change := d.Changed[file]
			fmt.Fprintf(w, "    %-*s %s -> %s\n", width, file, change.Old.Emoji(), change.New.Emoji())
		}
	}
}

func writeSummaryDeltas(w io.Writer, deltas map[types.Outcome]int) {
	for _, outcome := range types.AllOutcomes {
		fmt.Fprintf(w, "%+d %s   ", deltas[outcome], outcome.Emoji())
	}
	fmt.Fprintln(w)
}

func countOutcomes(m map[string]types.Outcome) map[types.Outcome]int {
	counts := make(map[types.Outcome]int)
	for _, outcome := range m {
		counts[outcome]++
	}
	return counts
}

func longestPath(changed map[string]OutcomeChange, added, removed map[string]types.Outcome) int {
	width := 0
	for file := range changed {
		if len(file) > width {
			width = len(file)
		}
	}
	for file := range added {
		if len(file) > width {
			width = len(file)
		}
	}
	for file := range removed {
		if len(file) > width {
			width = len(file)
		}
	}
	return width
}

func sortedOutcomeKeys(m map[string]types.Outcome) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedChangeKeys(m map[string]OutcomeChange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
