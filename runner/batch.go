package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ecmatools/run262/types"
)

// batchInvoker abstracts one executor invocation so the recovery loop can be
// exercised against a scripted executor in tests.
type batchInvoker interface {
	Invoke(ctx context.Context, relPaths []string) (*BatchResult, error)
}

// BatchResult is everything one executor invocation produced: classified
// runs for a prefix of the submitted paths, in submission order, plus the
// process-level context the recovery loop needs to decide how to continue.
type BatchResult struct {
	// Runs holds one TestRun per consumed result, positionally matched
	// against the submitted paths. When Crashed is set, the final run is the
	// synthesized PROCESS_ERROR for the file the executor died on.
	Runs []types.TestRun

	// Stopped is set when a stopping result (timeout, assert_fail) was
	// observed; the executor terminates after producing one.
	Stopped bool

	// Crashed is set when the executor exited abnormally without a stopping
	// result.
	Crashed bool

	// ExitCode is the executor's exit code (-1 when killed by a signal).
	ExitCode int

	// Stderr is the executor's captured error stream, ANSI-scrubbed.
	Stderr string

	// Trailing is unrecognized output after the last result frame: the point
	// where the executor stopped speaking the protocol.
	Trailing string
}

// BatchClient drives one executor invocation over a list of test files:
// paths go in one per line on stdin, classified results come back as
// NUL-delimited RESULT frames matched positionally against the submitted
// order.
type BatchClient struct {
	ExecutorPath   string
	CorpusRoot     string
	HarnessDir     string
	UseBytecode    bool
	ParseOnly      bool
	Timeout        time.Duration
	MemoryLimitMiB uint64
	Log            log.Logger
}

// Invoke runs the executor once over relPaths (corpus-relative). A returned
// error is a protocol violation or an orchestrator-side failure; executor
// crashes are not errors, they are folded into the result per the recovery
// contract.
func (c *BatchClient) Invoke(ctx context.Context, relPaths []string) (*BatchResult, error) {
	if len(relPaths) == 0 {
		return &BatchResult{}, nil
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(c.ExecutorPath, c.buildArgs(timeout)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening executor stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening executor stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	child, err := startChild(cmd, c.MemoryLimitMiB)
	if err != nil {
		return nil, err
	}
	stopWatch := child.watch(ctx)
	defer stopWatch()

	// The executor reads paths as it works through them, so the writer must
	// not block result consumption.
	go func() {
		defer func() { _ = stdin.Close() }()
		for _, rel := range relPaths {
			if _, err := io.WriteString(stdin, c.absPath(rel)+"\n"); err != nil {
				return
			}
		}
	}()

	result := &BatchResult{}
	matched := 0
	decoder := newRecordDecoder(stdout)

	protoErr := c.consume(decoder, relPaths, result, &matched)
	if protoErr != nil {
		child.killGroup()
	}
	// Drain whatever is left so the executor never blocks on a full pipe,
	// then reap it.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if protoErr != nil {
		return nil, protoErr
	}

	result.ExitCode = cmd.ProcessState.ExitCode()
	result.Stderr = stripansi.Strip(stderr.String())

	if waitErr != nil && !result.Stopped {
		result.Crashed = true
		if matched < len(relPaths) {
			outcome := types.OutcomeProcessError
			diag := result.Stderr
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				outcome = types.OutcomeTimeoutError
				diag = fmt.Sprintf("executor exceeded the %v batch timeout", timeout)
			} else if result.Trailing != "" {
				diag = result.Trailing + "\n" + diag
			}
			result.Runs = append(result.Runs, types.TestRun{
				File:     relPaths[matched],
				Outcome:  outcome,
				Output:   diag,
				ExitCode: result.ExitCode,
			})
		}
	}

	c.logResult(relPaths, result)
	return result, nil
}

// consume matches result frames positionally against the submitted paths
// until the stream ends, a stopping result arrives, or the executor stops
// speaking the protocol.
func (c *BatchClient) consume(decoder *recordDecoder, relPaths []string, result *BatchResult, matched *int) error {
	for {
		f, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if f.result == nil {
			// Free-form text means the executor stopped producing results.
			result.Trailing = stripansi.Strip(f.text)
			return nil
		}

		if *matched >= len(relPaths) {
			return &ProtocolError{Reason: fmt.Sprintf("result for %q after every submitted path was matched", f.result.Test)}
		}
		expected := c.absPath(relPaths[*matched])
		if f.result.Test != expected {
			return &ProtocolError{Reason: fmt.Sprintf("result for %q, expected %q", f.result.Test, expected)}
		}

		result.Runs = append(result.Runs, types.TestRun{
			File:       relPaths[*matched],
			Outcome:    resultKinds[f.result.Result],
			Output:     f.result.diagnostic(),
			StrictMode: f.result.StrictMode,
		})
		*matched++

		if stoppingKind(f.result.Result) {
			result.Stopped = true
			return nil
		}
	}
}

func (c *BatchClient) buildArgs(timeout time.Duration) []string {
	var args []string
	if c.UseBytecode {
		args = append(args, UseBytecodeFlag)
	}
	if c.ParseOnly {
		args = append(args, ParseOnlyFlag)
	}
	args = append(args, HarnessLocationFlag, c.HarnessDir)
	args = append(args, TimeoutFlag, strconv.Itoa(int(timeout.Seconds())))
	return args
}

func (c *BatchClient) absPath(rel string) string {
	return filepath.Join(c.CorpusRoot, rel)
}

func (c *BatchClient) logResult(relPaths []string, result *BatchResult) {
	if c.Log == nil {
		return
	}
	c.Log.Debug("Executor invocation finished",
		"submitted", len(relPaths),
		"matched", len(result.Runs),
		"stopped", result.Stopped,
		"crashed", result.Crashed,
		"exitCode", result.ExitCode)
}
