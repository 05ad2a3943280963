package runner

import (
	"fmt"
	"strings"

	"github.com/ecmatools/run262/metadata"
	"github.com/ecmatools/run262/types"
)

// executionResult mirrors the JSON document the executor emits for one test
// execution.
type executionResult struct {
	HarnessError bool            `json:"harness_error"`
	HarnessFile  string          `json:"harness_file"`
	Error        *executionError `json:"error"`
	Output       string          `json:"output"`
}

// executionError describes where and how a test execution failed.
type executionError struct {
	Phase   string `json:"phase"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// ClassifierPolicy captures the executor capability assumptions baked into
// negative-expectation matching. The defaults reflect an executor that does
// not distinguish early errors from parse errors and has no module
// resolution; a more capable executor can override them without changing
// the decision procedure.
type ClassifierPolicy struct {
	// FoldEarlyIntoParse treats an expected "early" failure as satisfied by
	// an actual "parse" failure.
	FoldEarlyIntoParse bool
	// ResolutionSupported enables matching of "resolution" phase failures.
	// When false, a resolution expectation always classifies as FAILED.
	ResolutionSupported bool
}

// DefaultClassifierPolicy is the policy validated against the full corpus.
var DefaultClassifierPolicy = ClassifierPolicy{
	FoldEarlyIntoParse:  true,
	ResolutionSupported: false,
}

// classifyExecution turns one captured execution result into an outcome,
// given the test's metadata. The metadata-absence and unsupported-feature
// gates happen before the executor is ever invoked, so by the time this
// runs the metadata is known-good except possibly for the negative phase.
func classifyExecution(meta *metadata.Metadata, res *executionResult, policy ClassifierPolicy) (types.Outcome, error) {
	if res.HarnessError {
		return types.OutcomeHarnessError, nil
	}

	if neg := meta.Negative; neg != nil {
		return classifyNegative(neg, res, policy)
	}

	if res.Error != nil {
		return types.OutcomeFailed, nil
	}

	if meta.HasFlag(metadata.FlagAsync) {
		if strings.Contains(res.Output, asyncCompleteSentinel) &&
			!strings.Contains(res.Output, asyncFailureSentinel) {
			return types.OutcomePassed, nil
		}
		return types.OutcomeFailed, nil
	}

	return types.OutcomePassed, nil
}

// classifyNegative matches an actual failure against a declared negative
// expectation. Success means reproducing the expected failure.
func classifyNegative(neg *metadata.NegativeExpectation, res *executionResult, policy ClassifierPolicy) (types.Outcome, error) {
	if !neg.Phase.Known() {
		return "", &ConfigError{Reason: fmt.Sprintf("unexpected negative phase %q", neg.Phase)}
	}

	actual := res.Error
	if actual == nil {
		return types.OutcomeFailed, nil
	}

	switch neg.Phase {
	case metadata.PhaseParse:
		return passedIf(actual.Phase == "parse" && actual.Type == neg.Type), nil
	case metadata.PhaseEarly:
		if policy.FoldEarlyIntoParse {
			// The executor reports early errors as parse errors.
			return passedIf(actual.Phase == "parse" && actual.Type == neg.Type), nil
		}
		return passedIf(actual.Phase == "early" && actual.Type == neg.Type), nil
	case metadata.PhaseRuntime:
		return passedIf(actual.Phase == "runtime" && actual.Type == neg.Type), nil
	case metadata.PhaseResolution:
		if !policy.ResolutionSupported {
			return types.OutcomeFailed, nil
		}
		return passedIf(actual.Phase == "resolution" && actual.Type == neg.Type), nil
	}
	return "", &ConfigError{Reason: fmt.Sprintf("unexpected negative phase %q", neg.Phase)}
}

func passedIf(ok bool) types.Outcome {
	if ok {
		return types.OutcomePassed
	}
	return types.OutcomeFailed
}
