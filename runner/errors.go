package runner

import "errors"

// ProtocolError indicates the executor and the orchestrator have
// desynchronized on the result stream: a result arrived for the wrong path,
// a RESULT frame failed to parse, or a result kind was not in the protocol's
// vocabulary. This is a harness bug, never a test outcome, and it aborts the
// batch invocation that observed it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "batch protocol violation: " + e.Reason
}

// IsProtocolError checks if the error is or wraps a ProtocolError
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return err != nil && errors.As(err, &protoErr)
}

// ConfigError indicates metadata yielded an impossible state, such as a
// negative expectation with an unrecognized phase. Guessing here would
// silently misclassify tests, so the whole run stops instead.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// IsConfigError checks if the error is or wraps a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return err != nil && errors.As(err, &cfgErr)
}
