package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ecmatools/run262/metadata"
	"github.com/ecmatools/run262/types"
)

// DirectClient executes one test file per executor invocation: harness file
// paths as arguments, the prepared test script on stdin, one JSON result
// document on stdout. This is the non-batched run mode; classification
// happens on the orchestrator side.
type DirectClient struct {
	ExecutorPath   string
	CorpusRoot     string
	HarnessDir     string
	UseBytecode    bool
	Timeout        time.Duration
	MemoryLimitMiB uint64
	Policy         ClassifierPolicy
	Log            log.Logger
}

// RunTest runs a single test file through the metadata gates and the
// strict/sloppy fan-out. The returned error is reserved for configuration
// errors that must stop the whole run; everything else, including a
// panicking orchestrator bug, is folded into the outcome.
func (c *DirectClient) RunTest(ctx context.Context, relPath string) (run types.TestRun, err error) {
	defer func() {
		if r := recover(); r != nil {
			run = types.TestRun{
				File:    relPath,
				Outcome: types.OutcomeRunnerException,
				Output:  fmt.Sprintf("panic while running test: %v", r),
			}
			err = nil
		}
	}()

	meta, metaErr := metadata.ExtractFile(filepath.Join(c.CorpusRoot, relPath))
	if metaErr != nil {
		return types.TestRun{File: relPath, Outcome: types.OutcomeMetadataError, Output: metaErr.Error()}, nil
	}

	for _, feature := range meta.Features {
		if _, unsupported := UnsupportedFeatures[feature]; unsupported {
			return types.TestRun{File: relPath, Outcome: types.OutcomeSkipped, Output: "unsupported feature: " + feature}, nil
		}
	}

	switch {
	case meta.HasFlag(metadata.FlagOnlyStrict) || meta.HasFlag(metadata.FlagModule):
		return c.runOnce(ctx, relPath, meta, true)
	case meta.HasFlag(metadata.FlagNoStrict) || meta.HasFlag(metadata.FlagRaw):
		return c.runOnce(ctx, relPath, meta, false)
	}

	// Default fan-out: strict first; a non-passing strict run is the file's
	// outcome and the sloppy run is skipped entirely.
	strictRun, err := c.runOnce(ctx, relPath, meta, true)
	if err != nil || strictRun.Outcome != types.OutcomePassed {
		return strictRun, err
	}
	return c.runOnce(ctx, relPath, meta, false)
}

// runOnce performs a single executor invocation in the given mode and
// classifies the captured result.
func (c *DirectClient) runOnce(ctx context.Context, relPath string, meta *metadata.Metadata, strict bool) (types.TestRun, error) {
	run, err := c.invoke(ctx, relPath, meta, strict)
	if err != nil {
		return run, err
	}
	c.logRun(run)
	return run, nil
}

func (c *DirectClient) invoke(ctx context.Context, relPath string, meta *metadata.Metadata, strict bool) (types.TestRun, error) {
	script, err := c.prepareScript(relPath, meta, strict)
	if err != nil {
		return types.TestRun{File: relPath, Outcome: types.OutcomeRunnerException, Output: err.Error()}, nil
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(c.ExecutorPath, c.buildArgs(meta)...)
	cmd.Stdin = bytes.NewReader(script)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	child, err := startChild(cmd, c.MemoryLimitMiB)
	if err != nil {
		return types.TestRun{File: relPath, Outcome: types.OutcomeRunnerException, Output: err.Error()}, nil
	}
	stopWatch := child.watch(ctx)
	waitErr := cmd.Wait()
	stopWatch()

	captured := stripansi.Strip(output.String())
	strictMode := &strict

	if waitErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.TestRun{File: relPath, Outcome: types.OutcomeTimeoutError, StrictMode: strictMode}, nil
		}
		return types.TestRun{
			File:       relPath,
			Outcome:    types.OutcomeProcessError,
			Output:     captured,
			ExitCode:   cmd.ProcessState.ExitCode(),
			StrictMode: strictMode,
		}, nil
	}

	var res executionResult
	if err := json.Unmarshal([]byte(captured), &res); err != nil {
		return types.TestRun{
			File:       relPath,
			Outcome:    types.OutcomeRunnerException,
			Output:     fmt.Sprintf("unparsable executor result: %v\n%s", err, captured),
			StrictMode: strictMode,
		}, nil
	}

	outcome, err := classifyExecution(meta, &res, c.Policy)
	if err != nil {
		return types.TestRun{}, err
	}
	return types.TestRun{File: relPath, Outcome: outcome, Output: prettyResult(captured), StrictMode: strictMode}, nil
}

func (c *DirectClient) logRun(run types.TestRun) {
	if c.Log == nil {
		return
	}
	strict := false
	if run.StrictMode != nil {
		strict = *run.StrictMode
	}
	c.Log.Debug("Executor invocation finished",
		"file", run.File,
		"outcome", run.Outcome,
		"strict", strict,
		"exitCode", run.ExitCode)
}

// prepareScript reads the test source and applies the strict prologue.
// Raw tests run verbatim.
func (c *DirectClient) prepareScript(relPath string, meta *metadata.Metadata, strict bool) ([]byte, error) {
	source, err := os.ReadFile(filepath.Join(c.CorpusRoot, relPath))
	if err != nil {
		return nil, fmt.Errorf("reading test file: %w", err)
	}
	if strict && !meta.HasFlag(metadata.FlagRaw) {
		source = append([]byte("\"use strict\";\n"), source...)
	}
	return source, nil
}

// buildArgs assembles the harness file list. HarnessDir-resolved base files
// come first, then the test's own includes, then the async print handle.
// Raw tests get no harness at all.
func (c *DirectClient) buildArgs(meta *metadata.Metadata) []string {
	var args []string
	if c.UseBytecode {
		args = append(args, UseBytecodeFlag)
	}
	if meta.HasFlag(metadata.FlagRaw) {
		return args
	}

	includes := append([]string{}, baseHarnessFiles...)
	includes = append(includes, meta.Includes...)
	if meta.HasFlag(metadata.FlagAsync) {
		includes = append(includes, asyncHarnessFile)
	}
	for _, include := range includes {
		args = append(args, filepath.Join(c.HarnessDir, include))
	}
	return args
}

// prettyResult re-indents the executor's JSON document for verbose display,
// falling back to the captured text when it will not parse.
func prettyResult(captured string) string {
	var doc any
	if err := json.Unmarshal([]byte(captured), &doc); err != nil {
		return captured
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return captured
	}
	return string(pretty)
}
