package runner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ecmatools/run262/types"
)

// resultPrefix tags the frames of the executor's output stream that carry a
// per-test JSON record. Anything else is free-form diagnostic text.
const resultPrefix = "RESULT "

// maxFrameBytes bounds a single frame. Captured test output is truncated by
// the executor well below this; a larger frame means the stream is garbage.
const maxFrameBytes = 16 * 1024 * 1024

// resultRecord is the JSON payload of one RESULT frame.
type resultRecord struct {
	Test         string `json:"test"`
	Result       string `json:"result"`
	StrictMode   *bool  `json:"strict_mode"`
	StrictOutput string `json:"strict_output"`
	Output       string `json:"output"`

	raw []byte
}

// diagnostic returns the captured output for the record, preferring the
// strict-mode field, then the plain one, falling back to the whole record
// re-serialized so a surprising result is never reported without context.
func (r *resultRecord) diagnostic() string {
	if r.StrictOutput != "" {
		return r.StrictOutput
	}
	if r.Output != "" {
		return r.Output
	}
	return string(r.raw)
}

// resultKinds maps the protocol's result-kind strings onto outcomes.
var resultKinds = map[string]types.Outcome{
	"passed":         types.OutcomePassed,
	"failed":         types.OutcomeFailed,
	"skipped":        types.OutcomeSkipped,
	"metadata_error": types.OutcomeMetadataError,
	"harness_error":  types.OutcomeHarnessError,
	"timeout":        types.OutcomeTimeoutError,
	"assert_fail":    types.OutcomeFailed,
	"todo_error":     types.OutcomeTodoError,
}

// stoppingKind reports whether the result kind means the executor is about
// to terminate and no further frames should be expected.
func stoppingKind(kind string) bool {
	return kind == "timeout" || kind == "assert_fail"
}

// frame is one NUL-delimited chunk of executor output: either a parsed
// result record, or trailing text marking the point where the executor
// stopped producing results.
type frame struct {
	result *resultRecord
	text   string
}

// recordDecoder turns the executor's output stream into typed frames. The
// positional matching contract lives in the batch client; the decoder only
// deals in framing and record syntax.
type recordDecoder struct {
	scanner *bufio.Scanner
}

func newRecordDecoder(r io.Reader) *recordDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)
	scanner.Split(scanNulFrames)
	return &recordDecoder{scanner: scanner}
}

// Next returns the next frame, io.EOF at end of stream, or a ProtocolError
// for a RESULT frame whose payload does not parse.
func (d *recordDecoder) Next() (*frame, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading executor output: %w", err)
		}
		return nil, io.EOF
	}

	chunk := d.scanner.Text()
	if !strings.HasPrefix(chunk, resultPrefix) {
		return &frame{text: chunk}, nil
	}

	payload := []byte(chunk[len(resultPrefix):])
	record := &resultRecord{raw: payload}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unparsable RESULT payload: %v", err)}
	}
	if _, ok := resultKinds[record.Result]; !ok {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown result kind %q for %q", record.Result, record.Test)}
	}
	return &frame{result: record}, nil
}

// scanNulFrames is a bufio.SplitFunc for NUL-terminated frames. A final
// unterminated chunk is returned as-is at EOF.
func scanNulFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
