package runner

import "time"

const (
	// DefaultBatchSize bounds how many test files are submitted to one
	// executor invocation. Large enough to amortize process startup, small
	// enough to bound the work lost when the executor crashes mid-batch.
	DefaultBatchSize = 250

	// DefaultTimeout is the wall-clock budget for one executor invocation.
	DefaultTimeout = 10 * time.Second

	// DefaultMemoryLimitMiB is the RLIMIT_AS ceiling applied to each
	// executor process before it begins work.
	DefaultMemoryLimitMiB = 512

	// maxProtocolRetries bounds how often a sub-batch is retried after a
	// protocol violation before the run gives up.
	maxProtocolRetries = 3
)

// Executor command-line flags (batch mode).
const (
	UseBytecodeFlag     = "--use-bytecode"
	ParseOnlyFlag       = "--parse-only"
	HarnessLocationFlag = "--harness-location"
	TimeoutFlag         = "--timeout"
)

// Harness files loaded before every non-raw test, in order, ahead of the
// test's own includes.
var baseHarnessFiles = []string{"assert.js", "sta.js"}

// asyncHarnessFile provides the print handle async tests use to report the
// completion sentinel.
const asyncHarnessFile = "doneprintHandle.js"

// Sentinels an async test must (and must not) print for success.
const (
	asyncCompleteSentinel = "Test262:AsyncTestComplete"
	asyncFailureSentinel  = "Test262:AsyncTestFailure"
)

// UnsupportedFeatures lists declared features that cause a test to be
// skipped without ever invoking the executor.
var UnsupportedFeatures = map[string]struct{}{
	"IsHTMLDDA": {},
}
