package results

import (
	"sync"

	"github.com/ecmatools/run262/types"
)

// Aggregator collects finished test runs from concurrent workers into the
// directory tree and a flat per-file map. All methods are safe for
// concurrent use.
type Aggregator struct {
	mu     sync.Mutex
	tree   *types.ResultTree
	flat   map[string]types.Outcome
	totals map[types.Outcome]int
	total  int
}

// NewAggregator sizes the result tree from the static file list. The list is
// fixed for the whole run; recording a file outside it is an error.
func NewAggregator(files []string) *Aggregator {
	return &Aggregator{
		tree:   types.BuildResultTree(files),
		flat:   make(map[string]types.Outcome, len(files)),
		totals: make(map[types.Outcome]int),
		total:  len(files),
	}
}

func (a *Aggregator) Record(run types.TestRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.tree.Record(run); err != nil {
		return err
	}
	a.flat[run.File] = run.Outcome
	a.totals[run.Outcome]++
	return nil
}

// Completed returns the number of runs recorded so far.
func (a *Aggregator) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	completed := 0
	for _, n := range a.totals {
		completed += n
	}
	return completed
}

// Total returns the size of the static file list.
func (a *Aggregator) Total() int {
	return a.total
}

// Totals returns a copy of the per-outcome counters.
func (a *Aggregator) Totals() map[types.Outcome]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[types.Outcome]int, len(a.totals))
	for outcome, n := range a.totals {
		out[outcome] = n
	}
	return out
}

// Tree returns the aggregated result tree. The caller must not record
// further runs while reading it.
func (a *Aggregator) Tree() *types.ResultTree {
	return a.tree
}

// Flat returns a copy of the per-file outcome map.
func (a *Aggregator) Flat() map[string]types.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]types.Outcome, len(a.flat))
	for file, outcome := range a.flat {
		out[file] = outcome
	}
	return out
}
