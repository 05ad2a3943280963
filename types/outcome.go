package types

import "fmt"

// Outcome is the classification of a single test execution. The set is
// closed: every test file ends up with exactly one of these per run.
type Outcome string

const (
	OutcomePassed          Outcome = "PASSED"
	OutcomeFailed          Outcome = "FAILED"
	OutcomeSkipped         Outcome = "SKIPPED"
	OutcomeMetadataError   Outcome = "METADATA_ERROR"
	OutcomeHarnessError    Outcome = "HARNESS_ERROR"
	OutcomeTimeoutError    Outcome = "TIMEOUT_ERROR"
	OutcomeProcessError    Outcome = "PROCESS_ERROR"
	OutcomeRunnerException Outcome = "RUNNER_EXCEPTION"
	OutcomeTodoError       Outcome = "TODO_ERROR"
)

// AllOutcomes lists every outcome in report order. Iteration over this
// slice is the only sanctioned way to enumerate outcomes so reports and
// persisted documents stay deterministic.
var AllOutcomes = []Outcome{
	OutcomePassed,
	OutcomeFailed,
	OutcomeSkipped,
	OutcomeMetadataError,
	OutcomeHarnessError,
	OutcomeTimeoutError,
	OutcomeProcessError,
	OutcomeRunnerException,
	OutcomeTodoError,
}

// outcomeEmojis mirrors the markers the result documents have always used.
var outcomeEmojis = map[Outcome]string{
	OutcomePassed:          "✅",
	OutcomeFailed:          "❌",
	OutcomeSkipped:         "⚠️",
	OutcomeMetadataError:   "📄",
	OutcomeHarnessError:    "⚙️",
	OutcomeTimeoutError:    "💀",
	OutcomeProcessError:    "💥️",
	OutcomeRunnerException: "🐍",
	OutcomeTodoError:       "📝",
}

// Emoji returns the display marker for the outcome.
func (o Outcome) Emoji() string {
	if e, ok := outcomeEmojis[o]; ok {
		return e
	}
	return "?"
}

// Valid reports whether o is a member of the closed outcome set.
func (o Outcome) Valid() bool {
	_, ok := outcomeEmojis[o]
	return ok
}

// ParseOutcome converts a persisted outcome name back into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}
