package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ecmatools/run262/types"
)

func writeDirectCorpus(t *testing.T, relPath, content string) string {
	t.Helper()
	root := t.TempDir()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return root
}

func newDirectClient(t *testing.T, executor, corpusRoot string) *DirectClient {
	t.Helper()
	return &DirectClient{
		ExecutorPath: executor,
		CorpusRoot:   corpusRoot,
		HarnessDir:   filepath.Join(corpusRoot, "harness"),
		Timeout:      5 * time.Second,
		Policy:       DefaultClassifierPolicy,
		Log:          log.New(),
	}
}

const plainTest = "/*---\ndescription: sample\n---*/\nvar x = 1;\n"

func TestDirectClientDefaultFanOut(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/language/sample.js", plainTest)
	modeLog := filepath.Join(t.TempDir(), "modes")
	// The first stdin line identifies the mode: the strict prologue in
	// strict runs, the metadata block opener otherwise.
	executor := writeExecutorScript(t, `read -r first
cat >/dev/null
echo "$first" >> `+modeLog+`
printf '{"harness_error": false, "output": ""}'
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/language/sample.js")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomePassed, run.Outcome)
	require.NotNil(t, run.StrictMode)
	assert.False(t, *run.StrictMode, "final run of the fan-out is sloppy")

	modes, err := os.ReadFile(modeLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(modes)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "\"use strict\";", lines[0])
	assert.Equal(t, "/*---", lines[1])
}

func TestDirectClientStrictFailureShortCircuits(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/sample.js", plainTest)
	countFile := filepath.Join(t.TempDir(), "count")
	executor := writeExecutorScript(t, `cat >/dev/null
echo run >> `+countFile+`
printf '{"error": {"phase": "runtime", "type": "TypeError", "details": "boom"}}'
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeFailed, run.Outcome)
	require.NotNil(t, run.StrictMode)
	assert.True(t, *run.StrictMode)

	counts, err := os.ReadFile(countFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(counts), "run"), "sloppy run must be skipped")
}

func TestDirectClientModeFlags(t *testing.T) {
	tests := []struct {
		name       string
		flags      string
		wantStrict bool
	}{
		{"onlyStrict", "[onlyStrict]", true},
		{"module", "[module]", true},
		{"noStrict", "[noStrict]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "/*---\nflags: " + tt.flags + "\n---*/\nvar x = 1;\n"
			corpus := writeDirectCorpus(t, "test/sample.js", source)
			executor := writeExecutorScript(t, `cat >/dev/null
printf '{"harness_error": false}'
`)

			client := newDirectClient(t, executor, corpus)
			run, err := client.RunTest(context.Background(), "test/sample.js")
			require.NoError(t, err)

			assert.Equal(t, types.OutcomePassed, run.Outcome)
			require.NotNil(t, run.StrictMode)
			assert.Equal(t, tt.wantStrict, *run.StrictMode)
		})
	}
}

func TestDirectClientRawTest(t *testing.T) {
	source := "/*---\nflags: [raw]\n---*/\nvar x = 1;\n"
	corpus := writeDirectCorpus(t, "test/sample.js", source)
	capture := filepath.Join(t.TempDir(), "capture")
	executor := writeExecutorScript(t, `echo "args:$#" > `+capture+`
cat >> `+capture+`
printf '{"harness_error": false}'
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomePassed, run.Outcome)

	captured, err := os.ReadFile(capture)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(captured), "args:0\n"), "raw tests take no harness arguments")
	assert.NotContains(t, string(captured), "use strict", "raw tests get no prologue")
}

func TestDirectClientHarnessArguments(t *testing.T) {
	source := "/*---\nincludes: [propertyHelper.js]\nflags: [async, onlyStrict]\n---*/\nvar x = 1;\n"
	corpus := writeDirectCorpus(t, "test/sample.js", source)
	argFile := filepath.Join(t.TempDir(), "args")
	executor := writeExecutorScript(t, `cat >/dev/null
for arg in "$@"; do echo "$arg" >> `+argFile+`; done
printf '{"harness_error": false, "output": "Test262:AsyncTestComplete"}'
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomePassed, run.Outcome)

	raw, err := os.ReadFile(argFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, args, 4)
	assert.Equal(t, filepath.Join(client.HarnessDir, "assert.js"), args[0])
	assert.Equal(t, filepath.Join(client.HarnessDir, "sta.js"), args[1])
	assert.Equal(t, filepath.Join(client.HarnessDir, "propertyHelper.js"), args[2])
	assert.Equal(t, filepath.Join(client.HarnessDir, "doneprintHandle.js"), args[3])
}

func TestDirectClientMetadataGate(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		outcome types.Outcome
	}{
		{"missing block", "var x = 1;\n", types.OutcomeMetadataError},
		{"malformed yaml", "/*---\nflags: [\n---*/\n", types.OutcomeMetadataError},
		{"unsupported feature", "/*---\nfeatures: [IsHTMLDDA]\n---*/\n", types.OutcomeSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := writeDirectCorpus(t, "test/sample.js", tt.source)
			// The gate fires before the executor launches, so a missing
			// binary proves it was never invoked.
			client := newDirectClient(t, filepath.Join(corpus, "no-such-executor"), corpus)
			run, err := client.RunTest(context.Background(), "test/sample.js")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, run.Outcome)
		})
	}
}

func TestDirectClientProcessError(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/sample.js", plainTest)
	executor := writeExecutorScript(t, `cat >/dev/null
echo "segmentation fault"
exit 139
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeProcessError, run.Outcome)
	assert.Equal(t, 139, run.ExitCode)
	assert.Contains(t, run.Output, "segmentation fault")
}

func TestDirectClientTimeout(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/sample.js", plainTest)
	executor := writeExecutorScript(t, `cat >/dev/null
sleep 30
`)

	client := newDirectClient(t, executor, corpus)
	client.Timeout = 200 * time.Millisecond

	start := time.Now()
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeTimeoutError, run.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDirectClientLogsInvocations(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/sample.js", plainTest)
	executor := writeExecutorScript(t, `cat >/dev/null
printf '{"harness_error": false}'
`)

	client := newDirectClient(t, executor, corpus)
	var buf bytes.Buffer
	client.Log = log.NewLogger(log.NewTerminalHandlerWithLevel(&buf, log.LevelDebug, false))

	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)
	require.Equal(t, types.OutcomePassed, run.Outcome)

	out := buf.String()
	assert.Contains(t, out, "Executor invocation finished")
	assert.Contains(t, out, "outcome=PASSED")
	// Both runs of the fan-out get their own line.
	assert.Contains(t, out, "strict=true")
	assert.Contains(t, out, "strict=false")
}

func TestDirectClientUnparsableResult(t *testing.T) {
	corpus := writeDirectCorpus(t, "test/sample.js", plainTest)
	executor := writeExecutorScript(t, `cat >/dev/null
echo "not json at all"
`)

	client := newDirectClient(t, executor, corpus)
	run, err := client.RunTest(context.Background(), "test/sample.js")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeRunnerException, run.Outcome)
	assert.Contains(t, run.Output, "not json at all")
}
