package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TreeNode is one directory of the corpus in the aggregated result tree.
// Count is fixed at build time; Results counters are the only thing mutated
// while tests run.
type TreeNode struct {
	Count    int
	Results  map[Outcome]int
	Children map[string]*TreeNode
}

// ResultTree aggregates outcome counts for every directory of the corpus.
// The full node structure is built up front from the static file list, so
// recording a result never allocates or mutates the shape of the tree.
// Concurrent recording only needs a counter lock, not a structural one.
type ResultTree struct {
	Root *TreeNode
}

func newTreeNode() *TreeNode {
	results := make(map[Outcome]int, len(AllOutcomes))
	for _, o := range AllOutcomes {
		results[o] = 0
	}
	return &TreeNode{
		Results:  results,
		Children: make(map[string]*TreeNode),
	}
}

// BuildResultTree constructs the tree for the given corpus-relative file
// paths. Every ancestor directory of every file gets a node, and each node's
// Count is the number of test files beneath it.
func BuildResultTree(files []string) *ResultTree {
	tree := &ResultTree{Root: newTreeNode()}
	for _, file := range files {
		tree.Root.Count++
		node := tree.Root
		for _, segment := range dirSegments(file) {
			child, ok := node.Children[segment]
			if !ok {
				child = newTreeNode()
				node.Children[segment] = child
			}
			child.Count++
			node = child
		}
	}
	return tree
}

// Record folds one test run into the tree, incrementing the outcome counter
// at the root and at every ancestor directory of the file. The caller is
// responsible for synchronization; Record itself never changes the node set.
func (t *ResultTree) Record(run TestRun) error {
	node := t.Root
	node.Results[run.Outcome]++
	for _, segment := range dirSegments(run.File) {
		child, ok := node.Children[segment]
		if !ok {
			return fmt.Errorf("result for %q does not fit the corpus tree (missing %q)", run.File, segment)
		}
		child.Results[run.Outcome]++
		node = child
	}
	return nil
}

// Validate checks the sum invariant on every node: the outcome counters must
// never exceed the node's file count, and complete=true additionally requires
// exact equality (every contained test reported exactly once).
func (t *ResultTree) Validate(complete bool) error {
	return validateNode(t.Root, "", complete)
}

func validateNode(node *TreeNode, path string, complete bool) error {
	sum := 0
	for _, count := range node.Results {
		sum += count
	}
	if sum > node.Count {
		return fmt.Errorf("node %q has %d results for %d tests", path, sum, node.Count)
	}
	if complete && sum != node.Count {
		return fmt.Errorf("node %q is incomplete: %d of %d tests reported", path, sum, node.Count)
	}
	for name, child := range node.Children {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		if err := validateNode(child, childPath, complete); err != nil {
			return err
		}
	}
	return nil
}

// ChildNames returns the node's child segments in sorted order.
func (n *TreeNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON emits the node in the persisted result-document shape:
// {"count":N,"results":{"PASSED":n,...},"children":{...}}, with outcome keys
// in canonical order.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"count":`)
	fmt.Fprintf(&buf, "%d", n.Count)
	buf.WriteString(`,"results":{`)
	for i, outcome := range AllOutcomes {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%d", outcome, n.Results[outcome])
	}
	buf.WriteString(`},"children":{`)
	for i, name := range n.ChildNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		child, err := json.Marshal(n.Children[name])
		if err != nil {
			return nil, err
		}
		buf.Write(child)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// MarshalJSON emits the root's children as the top-level object, which is
// the historical document shape (the corpus root itself has no key).
func (t *ResultTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.Root.ChildNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		child, err := json.Marshal(t.Root.Children[name])
		if err != nil {
			return nil, err
		}
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// dirSegments returns the directory components of a corpus-relative path.
func dirSegments(file string) []string {
	dir := strings.TrimSuffix(file, "/")
	if idx := strings.LastIndex(dir, "/"); idx >= 0 {
		dir = dir[:idx]
	} else {
		return nil
	}
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}
