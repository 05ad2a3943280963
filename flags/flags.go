package flags

import (
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ecmatools/run262/runner"
)

const EnvVarPrefix = "RUN262"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Executor = &cli.StringFlag{
		Name:     "executor",
		Aliases:  []string{"j"},
		Required: true,
		EnvVars:  prefixEnvVars("EXECUTOR"),
		Usage:    "Path to the test executor binary",
	}
	Test262Root = &cli.StringFlag{
		Name:     "test262-root",
		Aliases:  []string{"t"},
		Required: true,
		EnvVars:  prefixEnvVars("TEST262_ROOT"),
		Usage:    "Path to the test262 corpus checkout",
	}
	Pattern = &cli.StringFlag{
		Name:    "pattern",
		Aliases: []string{"p"},
		Value:   "test/**/*.js",
		EnvVars: prefixEnvVars("PATTERN"),
		Usage:   "Glob pattern selecting test files relative to the corpus root, or a single file path",
	}
	HarnessLocation = &cli.StringFlag{
		Name:    "harness-location",
		Value:   "",
		EnvVars: prefixEnvVars("HARNESS_LOCATION"),
		Usage:   "Path to the harness directory (defaults to <test262-root>/harness)",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Aliases: []string{"c"},
		Value:   runtime.NumCPU(),
		EnvVars: prefixEnvVars("CONCURRENCY"),
		Usage:   "Number of concurrent executor pipelines",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   runner.DefaultTimeout,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Per-test timeout in direct mode, per-batch timeout in batch mode",
	}
	MemoryLimit = &cli.Uint64Flag{
		Name:    "memory-limit",
		Value:   runner.DefaultMemoryLimitMiB,
		EnvVars: prefixEnvVars("MEMORY_LIMIT"),
		Usage:   "Executor address-space limit in MiB, 0 to disable",
	}
	BatchSize = &cli.IntFlag{
		Name:    "batch-size",
		Value:   runner.DefaultBatchSize,
		EnvVars: prefixEnvVars("BATCH_SIZE"),
		Usage:   "Maximum number of test files submitted per executor invocation",
	}
	UseBytecode = &cli.BoolFlag{
		Name:    "use-bytecode",
		Aliases: []string{"b"},
		EnvVars: prefixEnvVars("USE_BYTECODE"),
		Usage:   "Run tests on the bytecode interpreter",
	}
	ParseOnly = &cli.BoolFlag{
		Name:    "parse-only",
		EnvVars: prefixEnvVars("PARSE_ONLY"),
		Usage:   "Only parse the tests, do not execute them",
	}
	PerFile = &cli.BoolFlag{
		Name:    "per-file",
		EnvVars: prefixEnvVars("PER_FILE"),
		Usage:   "Launch one executor per test file instead of batching",
	}
	JSON = &cli.BoolFlag{
		Name:    "json",
		EnvVars: prefixEnvVars("JSON"),
		Usage:   "Print the result tree as JSON instead of the console report",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		EnvVars: prefixEnvVars("OUTPUT"),
		Usage:   "Write the result tree document to this file",
	}
	PerFileOutput = &cli.StringFlag{
		Name:    "per-file-output",
		EnvVars: prefixEnvVars("PER_FILE_OUTPUT"),
		Usage:   "Write the flat per-file result document to this file",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		EnvVars: prefixEnvVars("VERBOSE"),
		Usage:   "Print every finished test with its output",
	}
	Silent = &cli.BoolFlag{
		Name:    "silent",
		Aliases: []string{"s"},
		EnvVars: prefixEnvVars("SILENT"),
		Usage:   "Suppress progress output",
	}
	FailOnly = &cli.BoolFlag{
		Name:    "fail-only",
		EnvVars: prefixEnvVars("FAIL_ONLY"),
		Usage:   "Hide fully passing directories from the console report",
	}
	Summary = &cli.BoolFlag{
		Name:    "summary",
		EnvVars: prefixEnvVars("SUMMARY"),
		Usage:   "Print the per-outcome summary table after the report",
	}
	ForwardStderr = &cli.BoolFlag{
		Name:    "forward-stderr",
		EnvVars: prefixEnvVars("FORWARD_STDERR"),
		Usage:   "Log executor diagnostics as they arrive",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   10 * time.Second,
		EnvVars: prefixEnvVars("PROGRESS_INTERVAL"),
		Usage:   "Interval between progress log lines",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "The lowest log level that will be output (trace, debug, info, warn, error, crit)",
	}
)

var requiredFlags = []cli.Flag{
	Executor,
	Test262Root,
}

var optionalFlags = []cli.Flag{
	Pattern,
	HarnessLocation,
	Concurrency,
	Timeout,
	MemoryLimit,
	BatchSize,
	UseBytecode,
	ParseOnly,
	PerFile,
	JSON,
	Output,
	PerFileOutput,
	Verbose,
	Silent,
	FailOnly,
	Summary,
	ForwardStderr,
	ProgressInterval,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
