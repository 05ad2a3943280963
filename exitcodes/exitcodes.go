// Package exitcodes defines the standard exit codes used by run262.
package exitcodes

// Exit code constants used by run262
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): the run or diff completed; test-level outcomes are data, not
//   process failures
// * Regressions (1): a regressions-only diff found tests that stopped passing
// * RuntimeErr (2): configuration errors, protocol desync or other
//   orchestrator failures
const (
	Success     = 0
	Regressions = 1
	RuntimeErr  = 2
)
