// Package metadata extracts the embedded conformance metadata block from
// test files: the YAML document between the "/*---" and "---*/" marker
// lines that declares features, execution flags, harness includes and the
// expected-failure descriptor.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrNoMetadata is returned when a test file carries no metadata block.
// Callers classify this as METADATA_ERROR rather than treating it as an
// orchestrator failure.
var ErrNoMetadata = errors.New("no metadata block")

var metadataBlockRegex = regexp.MustCompile(`(?s)/\*---\n(.+)\n---\*/`)

// Flag is one of the enumerated execution flags a test may declare.
type Flag string

const (
	// FlagOnlyStrict restricts the test to a single strict-mode run.
	FlagOnlyStrict Flag = "onlyStrict"
	// FlagNoStrict restricts the test to a single sloppy-mode run.
	FlagNoStrict Flag = "noStrict"
	// FlagModule runs the test as a module, which implies strict mode.
	FlagModule Flag = "module"
	// FlagRaw runs the source verbatim: no harness, no strict prologue.
	FlagRaw Flag = "raw"
	// FlagAsync marks a test whose success is signalled by a completion
	// sentinel in its captured output rather than by returning normally.
	FlagAsync Flag = "async"
	// FlagGenerated marks machine-generated tests. Informational only.
	FlagGenerated Flag = "generated"
	// FlagCanBlockIsFalse marks agent tests that require a non-blocking
	// main agent. Informational only.
	FlagCanBlockIsFalse Flag = "CanBlockIsFalse"
)

var knownFlags = map[Flag]struct{}{
	FlagOnlyStrict:      {},
	FlagNoStrict:        {},
	FlagModule:          {},
	FlagRaw:             {},
	FlagAsync:           {},
	FlagGenerated:       {},
	FlagCanBlockIsFalse: {},
}

// Phase identifies when a negative test expects its failure to occur.
type Phase string

const (
	PhaseParse      Phase = "parse"
	PhaseEarly      Phase = "early"
	PhaseResolution Phase = "resolution"
	PhaseRuntime    Phase = "runtime"
)

// Known reports whether the phase is one of the four defined values.
// Classification treats anything else as a configuration error that stops
// the whole run.
func (p Phase) Known() bool {
	switch p {
	case PhaseParse, PhaseEarly, PhaseResolution, PhaseRuntime:
		return true
	}
	return false
}

// NegativeExpectation describes a test that is expected to fail in a
// specific phase with a specific error type. Reproducing the expected
// failure is what makes the test pass.
type NegativeExpectation struct {
	Phase Phase  `yaml:"phase"`
	Type  string `yaml:"type"`
}

// Metadata is the read-only per-file conformance metadata.
type Metadata struct {
	Features []string             `yaml:"features"`
	Flags    []Flag               `yaml:"flags"`
	Includes []string             `yaml:"includes"`
	Locale   []string             `yaml:"locale"`
	Negative *NegativeExpectation `yaml:"negative"`
}

// HasFlag reports whether the test declares the given execution flag.
func (m *Metadata) HasFlag(flag Flag) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Extract parses the metadata block out of test source. A missing block is
// ErrNoMetadata; a block that fails to parse, or one declaring a flag
// outside the enumerated set, is reported as a distinct parse error. Both
// classify as METADATA_ERROR.
func Extract(source []byte) (*Metadata, error) {
	match := metadataBlockRegex.FindSubmatch(source)
	if match == nil {
		return nil, ErrNoMetadata
	}

	var meta Metadata
	if err := yaml.Unmarshal(match[1], &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata block: %w", err)
	}
	for _, flag := range meta.Flags {
		if _, ok := knownFlags[flag]; !ok {
			return nil, fmt.Errorf("metadata block declares unknown flag %q", flag)
		}
	}
	return &meta, nil
}

// ExtractFile reads a test file and extracts its metadata block.
func ExtractFile(path string) (*Metadata, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test file: %w", err)
	}
	return Extract(source)
}
