package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ecmatools/run262/types"
)

// Document is the JSON shape written by result persistence and consumed by
// the diff command. Results holds either the directory tree or the flat
// per-file map, depending on which view was saved.
type Document struct {
	Duration float64         `json:"duration"`
	Results  json.RawMessage `json:"results"`
	RunID    string          `json:"run_id"`
}

// NewTreeDocument wraps the directory tree for persistence.
func NewTreeDocument(tree *types.ResultTree, duration time.Duration, runID string) (*Document, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding result tree: %w", err)
	}
	return &Document{Duration: duration.Seconds(), Results: raw, RunID: runID}, nil
}

// NewFlatDocument wraps the per-file outcome map for persistence.
func NewFlatDocument(flat map[string]types.Outcome, duration time.Duration, runID string) (*Document, error) {
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encoding per-file results: %w", err)
	}
	return &Document{Duration: duration.Seconds(), Results: raw, RunID: runID}, nil
}

// WriteJSON writes the document followed by a newline.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(d)
}

// Save writes the document to path, creating or truncating the file.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	if err := d.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("writing results file: %w", err)
	}
	return f.Close()
}

// LoadFlatDocument reads a per-file results document and validates every
// outcome value.
func LoadFlatDocument(path string) (*Document, map[string]types.Outcome, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading results file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}

	var outcomes map[string]string
	if err := json.Unmarshal(doc.Results, &outcomes); err != nil {
		return nil, nil, fmt.Errorf("parsing per-file results in %s: %w", path, err)
	}
	flat := make(map[string]types.Outcome, len(outcomes))
	for file, value := range outcomes {
		outcome, err := types.ParseOutcome(value)
		if err != nil {
			return nil, nil, fmt.Errorf("results file %s: %s: %w", path, file, err)
		}
		flat[file] = outcome
	}
	return &doc, flat, nil
}
