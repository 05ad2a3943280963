package types

// TestRun is the result of executing one test file once. It is produced by
// whichever worker ran the file and handed to the aggregator exactly once;
// after that only the derived counters are retained.
type TestRun struct {
	// File is the test's path relative to the corpus root. It is the unique
	// key for both directory aggregation and per-file reporting.
	File string

	// Outcome is the classification of this execution.
	Outcome Outcome

	// Output holds captured diagnostic text, if any.
	Output string

	// ExitCode is the executor's exit code when the outcome was synthesized
	// from an abnormal process exit. Zero otherwise.
	ExitCode int

	// StrictMode is set when the executor reported which mode produced the
	// result. Nil when the mode is not tracked.
	StrictMode *bool
}
