package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmatools/run262/types"
)

// scriptedInvoker plays back canned behavior per invocation, for driving the
// recovery loop without a real executor.
type scriptedInvoker struct {
	script func(call int, relPaths []string) (*BatchResult, error)
	calls  [][]string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, relPaths []string) (*BatchResult, error) {
	call := len(s.calls)
	s.calls = append(s.calls, append([]string(nil), relPaths...))
	return s.script(call, relPaths)
}

// passAll reports every submitted path as passed.
func passAll(relPaths []string) *BatchResult {
	res := &BatchResult{}
	for _, p := range relPaths {
		res.Runs = append(res.Runs, types.TestRun{File: p, Outcome: types.OutcomePassed})
	}
	return res
}

func collectRuns(recorded *[]types.TestRun) func(types.TestRun) {
	return func(run types.TestRun) { *recorded = append(*recorded, run) }
}

func worklistOf(n int) []string {
	list := make([]string, n)
	for i := range list {
		list[i] = fmt.Sprintf("test/f%03d.js", i)
	}
	return list
}

func TestRecoveryLoop_CleanRun(t *testing.T) {
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		return passAll(relPaths), nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 10, false, nil, collectRuns(&recorded))
	require.NoError(t, loop.Run(context.Background(), worklistOf(25)))

	assert.Len(t, recorded, 25)
	assert.Len(t, invoker.calls, 3, "25 files at batch size 10 is three invocations")
	assert.Len(t, invoker.calls[2], 5)
}

func TestRecoveryLoop_CrashContainment(t *testing.T) {
	// Work-list of N files where file k crashes the executor: files before k
	// resolve normally, file k becomes PROCESS_ERROR, files after k are
	// re-attempted and resolve - nothing is silently dropped.
	const n, k = 20, 7
	worklist := worklistOf(n)

	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		res := &BatchResult{}
		for i, p := range relPaths {
			if p == worklist[k] {
				res.Runs = append(res.Runs, types.TestRun{File: p, Outcome: types.OutcomeProcessError, ExitCode: 139})
				res.Crashed = true
				res.ExitCode = 139
				return res, nil
			}
			res.Runs = append(res.Runs, types.TestRun{File: p, Outcome: types.OutcomePassed})
			_ = i
		}
		return res, nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, n, false, nil, collectRuns(&recorded))
	require.NoError(t, loop.Run(context.Background(), worklist))

	require.Len(t, recorded, n)
	for i, run := range recorded {
		assert.Equal(t, worklist[i], run.File, "results must stay in submission order")
		if i == k {
			assert.Equal(t, types.OutcomeProcessError, run.Outcome)
		} else {
			assert.Equal(t, types.OutcomePassed, run.Outcome)
		}
	}
	assert.Len(t, invoker.calls, 2, "one crash means exactly one re-invocation")
	assert.Equal(t, worklist[k+1:], invoker.calls[1], "resubmission starts after the sacrificed file")
}

func TestRecoveryLoop_EveryFileCrashes(t *testing.T) {
	// Pathological corpus: the executor dies before reporting anything, every
	// time. The loop must still terminate, one sacrificed file per launch.
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		return &BatchResult{Crashed: true, ExitCode: 1, Stderr: "instant death"}, nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 4, false, nil, collectRuns(&recorded))
	require.NoError(t, loop.Run(context.Background(), worklistOf(9)))

	require.Len(t, recorded, 9)
	for _, run := range recorded {
		assert.Equal(t, types.OutcomeProcessError, run.Outcome)
		assert.Equal(t, "instant death", run.Output)
	}
	assert.Len(t, invoker.calls, 9, "degrades to one launch per file")
}

func TestRecoveryLoop_StoppingResultResumes(t *testing.T) {
	worklist := worklistOf(6)
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		if call == 0 {
			// Timeout on the second file stops this invocation.
			return &BatchResult{
				Runs: []types.TestRun{
					{File: relPaths[0], Outcome: types.OutcomePassed},
					{File: relPaths[1], Outcome: types.OutcomeTimeoutError},
				},
				Stopped:  true,
				ExitCode: 1,
			}, nil
		}
		return passAll(relPaths), nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 10, false, nil, collectRuns(&recorded))
	require.NoError(t, loop.Run(context.Background(), worklist))

	require.Len(t, recorded, 6)
	assert.Equal(t, types.OutcomeTimeoutError, recorded[1].Outcome)
	assert.Equal(t, worklist[2:], invoker.calls[1])
}

func TestRecoveryLoop_ProtocolErrorRetriesThenFails(t *testing.T) {
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		return nil, &ProtocolError{Reason: "result for the wrong path"}
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 10, false, nil, collectRuns(&recorded))
	err := loop.Run(context.Background(), worklistOf(3))

	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
	assert.Len(t, invoker.calls, maxProtocolRetries+1)
	assert.Empty(t, recorded, "a desynchronized stream must not be absorbed into outcomes")
}

func TestRecoveryLoop_ProtocolErrorRecovers(t *testing.T) {
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		if call == 0 {
			return nil, &ProtocolError{Reason: "transient desync"}
		}
		return passAll(relPaths), nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 10, false, nil, collectRuns(&recorded))
	require.NoError(t, loop.Run(context.Background(), worklistOf(5)))
	assert.Len(t, recorded, 5)
}

func TestRecoveryLoop_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		cancel() // interrupt arrives mid-run
		return passAll(relPaths), nil
	}}

	var recorded []types.TestRun
	loop := NewRecoveryLoop(invoker, 2, false, nil, collectRuns(&recorded))
	err := loop.Run(ctx, worklistOf(10))

	require.ErrorIs(t, err, context.Canceled)
	// Results recorded before the interrupt remain valid.
	assert.Len(t, recorded, 2)
}

func TestRecoveryLoop_EmptyWorklist(t *testing.T) {
	invoker := &scriptedInvoker{script: func(call int, relPaths []string) (*BatchResult, error) {
		t.Fatal("no invocation expected for an empty work-list")
		return nil, nil
	}}
	loop := NewRecoveryLoop(invoker, 10, false, nil, func(types.TestRun) {})
	require.NoError(t, loop.Run(context.Background(), nil))
}
