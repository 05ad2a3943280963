package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	source := []byte(`// Copyright (C) 2020 the authors. All rights reserved.
/*---
esid: sec-example
description: >
  Example negative runtime test
features: [Symbol.asyncIterator, BigInt]
flags: [onlyStrict, async]
includes: [compareArray.js]
negative:
  phase: runtime
  type: TypeError
---*/
throw new TypeError();
`)

	meta, err := Extract(source)
	require.NoError(t, err)

	assert.Equal(t, []string{"Symbol.asyncIterator", "BigInt"}, meta.Features)
	assert.Equal(t, []Flag{FlagOnlyStrict, FlagAsync}, meta.Flags)
	assert.Equal(t, []string{"compareArray.js"}, meta.Includes)
	require.NotNil(t, meta.Negative)
	assert.Equal(t, PhaseRuntime, meta.Negative.Phase)
	assert.Equal(t, "TypeError", meta.Negative.Type)

	assert.True(t, meta.HasFlag(FlagAsync))
	assert.False(t, meta.HasFlag(FlagRaw))
}

func TestExtract_NoBlock(t *testing.T) {
	_, err := Extract([]byte(`var x = 1; // no metadata here`))
	require.ErrorIs(t, err, ErrNoMetadata)
}

func TestExtract_EmptyKeys(t *testing.T) {
	source := []byte(`/*---
description: minimal test
---*/
`)
	meta, err := Extract(source)
	require.NoError(t, err)
	assert.Empty(t, meta.Features)
	assert.Empty(t, meta.Flags)
	assert.Empty(t, meta.Includes)
	assert.Nil(t, meta.Negative)
}

func TestExtract_MalformedYAML(t *testing.T) {
	source := []byte(`/*---
flags: [onlyStrict
---*/
`)
	_, err := Extract(source)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoMetadata)
}

func TestExtract_UnknownFlag(t *testing.T) {
	source := []byte(`/*---
flags: [superStrict]
---*/
`)
	_, err := Extract(source)
	require.ErrorContains(t, err, "unknown flag")
}

func TestPhase_Known(t *testing.T) {
	tests := []struct {
		phase Phase
		known bool
	}{
		{PhaseParse, true},
		{PhaseEarly, true},
		{PhaseResolution, true},
		{PhaseRuntime, true},
		{Phase("linktime"), false},
		{Phase(""), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.known, tt.phase.Known(), "phase %q", tt.phase)
	}
}
