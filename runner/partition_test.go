package runner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFiles(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("test/dir%02d/file%04d.js", i%7, i)
	}
	return files
}

func TestPartitionWork_ListCountBounds(t *testing.T) {
	tests := []struct {
		name        string
		files       int
		concurrency int
		wantLists   int
	}{
		{name: "single worker", files: 100, concurrency: 1, wantLists: 1},
		{name: "squared bound below 4x", files: 100, concurrency: 2, wantLists: 4},
		{name: "squared bound at 3", files: 100, concurrency: 3, wantLists: 9},
		{name: "4x bound from 4 up", files: 1000, concurrency: 8, wantLists: 32},
		{name: "tiny corpus caps lists", files: 5, concurrency: 16, wantLists: 5},
		{name: "empty corpus", files: 0, concurrency: 8, wantLists: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lists := PartitionWork(makeFiles(tt.files), tt.concurrency)
			assert.Len(t, lists, tt.wantLists)
		})
	}
}

func TestPartitionWork_Balance(t *testing.T) {
	files := makeFiles(1037)
	lists := PartitionWork(files, 8)

	minLen, maxLen := len(files), 0
	total := 0
	for _, list := range lists {
		total += len(list)
		if len(list) < minLen {
			minLen = len(list)
		}
		if len(list) > maxLen {
			maxLen = len(list)
		}
	}
	assert.Equal(t, len(files), total)
	assert.LessOrEqual(t, maxLen-minLen, 1, "list lengths must be balanced to within one element")
}

func TestPartitionWork_RoundRobinPreservesOrder(t *testing.T) {
	files := makeFiles(10)
	lists := PartitionWork(files, 1) // concurrency 1 -> one list

	require.Len(t, lists, 1)
	assert.Equal(t, files, lists[0])

	// With multiple lists placement is index mod count, and each list keeps
	// submission order.
	lists = PartitionWork(files, 2)
	require.Len(t, lists, 4)
	for li, list := range lists {
		for fi, file := range list {
			assert.Equal(t, files[fi*4+li], file)
		}
	}
}

func TestPartitionWork_NoFileLostOrDuplicated(t *testing.T) {
	files := makeFiles(333)
	lists := PartitionWork(files, 6)

	seen := make(map[string]int)
	for _, list := range lists {
		for _, file := range list {
			seen[file]++
		}
	}
	require.Len(t, seen, len(files))
	for file, n := range seen {
		assert.Equal(t, 1, n, "file %s assigned %d times", file, n)
	}
}
