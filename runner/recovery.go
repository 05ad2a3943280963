package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ecmatools/run262/metrics"
	"github.com/ecmatools/run262/types"
)

// loopState is the recovery loop's mode between executor invocations.
type loopState int

const (
	// stateRunning means the previous invocation ended normally and the next
	// one continues from the cursor.
	stateRunning loopState = iota
	// stateRecovering means the previous invocation died abnormally; one
	// file was sacrificed as PROCESS_ERROR and the next invocation resumes
	// after it.
	stateRecovering
)

// RecoveryLoop drives one work-list to completion across any number of
// executor invocations. A single cursor tracks progress; every invocation
// advances it by the number of results produced, and a crash advances it by
// exactly one sacrificed file, so the loop terminates even on a corpus that
// crashes the executor on every single test.
type RecoveryLoop struct {
	client        batchInvoker
	batchSize     int
	forwardStderr bool
	log           log.Logger
	record        func(types.TestRun)
}

// NewRecoveryLoop creates a recovery loop feeding classified runs to record.
func NewRecoveryLoop(client batchInvoker, batchSize int, forwardStderr bool, logger log.Logger, record func(types.TestRun)) *RecoveryLoop {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.Root()
	}
	return &RecoveryLoop{
		client:        client,
		batchSize:     batchSize,
		forwardStderr: forwardStderr,
		log:           logger,
		record:        record,
	}
}

// Run works through the list. It returns early only on context cancellation
// or on a protocol violation that survives its retry budget; executor
// crashes are absorbed per the one-file-sacrifice policy.
func (l *RecoveryLoop) Run(ctx context.Context, worklist []string) error {
	cursor := 0
	state := stateRunning
	protocolRetries := 0

	for cursor < len(worklist) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if state == stateRecovering {
			l.log.Debug("Re-entering running state after crash", "cursor", cursor)
			state = stateRunning
		}

		end := cursor + l.batchSize
		if end > len(worklist) {
			end = len(worklist)
		}

		result, err := l.client.Invoke(ctx, worklist[cursor:end])
		if err != nil {
			if IsProtocolError(err) && protocolRetries < maxProtocolRetries {
				protocolRetries++
				metrics.RecordProtocolError()
				l.log.Error("Executor stream desynchronized, retrying sub-batch",
					"cursor", cursor, "attempt", protocolRetries, "err", err)
				continue
			}
			return fmt.Errorf("batch at cursor %d: %w", cursor, err)
		}
		protocolRetries = 0
		metrics.RecordBatch()

		for _, run := range result.Runs {
			l.record(run)
			cursor++
		}

		l.forwardDiagnostics(result, worklist, cursor)

		switch {
		case result.Crashed:
			state = stateRecovering
			metrics.RecordExecutorRestart()
			if len(result.Runs) == 0 {
				// The executor died (or exited clean) before reporting on a
				// single file. Sacrifice one so the cursor always advances.
				l.record(types.TestRun{
					File:     worklist[cursor],
					Outcome:  types.OutcomeProcessError,
					Output:   result.Stderr,
					ExitCode: result.ExitCode,
				})
				cursor++
			}
			l.log.Warn("Executor died mid-batch, resuming after sacrificed file",
				"cursor", cursor, "remaining", len(worklist)-cursor, "exitCode", result.ExitCode)
		case len(result.Runs) == 0:
			// Clean exit with nothing to show for it; same advance-by-one
			// policy keeps a pathological executor from stalling the run.
			l.record(types.TestRun{
				File:     worklist[cursor],
				Outcome:  types.OutcomeProcessError,
				Output:   "executor exited without reporting any result",
				ExitCode: result.ExitCode,
			})
			cursor++
			state = stateRecovering
		}
	}
	return nil
}

// forwardDiagnostics surfaces the executor's error stream so operators can
// correlate crash causes with the file that triggered them.
func (l *RecoveryLoop) forwardDiagnostics(result *BatchResult, worklist []string, cursor int) {
	if !l.forwardStderr || result.Stderr == "" {
		return
	}
	lastMatched := "(none)"
	if cursor > 0 {
		lastMatched = worklist[cursor-1]
	}
	l.log.Warn("Executor stderr", "lastMatched", lastMatched, "stderr", result.Stderr)
}
