package results

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmatools/run262/types"
)

func TestAggregatorRecord(t *testing.T) {
	agg := NewAggregator([]string{
		"test/a/one.js",
		"test/a/two.js",
		"test/b/three.js",
	})

	require.NoError(t, agg.Record(types.TestRun{File: "test/a/one.js", Outcome: types.OutcomePassed}))
	require.NoError(t, agg.Record(types.TestRun{File: "test/a/two.js", Outcome: types.OutcomeFailed}))

	assert.Equal(t, 2, agg.Completed())
	assert.Equal(t, 3, agg.Total())
	assert.Equal(t, map[types.Outcome]int{
		types.OutcomePassed: 1,
		types.OutcomeFailed: 1,
	}, agg.Totals())
	assert.Equal(t, map[string]types.Outcome{
		"test/a/one.js": types.OutcomePassed,
		"test/a/two.js": types.OutcomeFailed,
	}, agg.Flat())
}

func TestAggregatorRejectsUnknownFile(t *testing.T) {
	agg := NewAggregator([]string{"test/a.js"})
	err := agg.Record(types.TestRun{File: "test/phantom.js", Outcome: types.OutcomePassed})
	assert.Error(t, err)
	assert.Equal(t, 0, agg.Completed())
}

func TestAggregatorConcurrentRecord(t *testing.T) {
	files := make([]string, 200)
	for i := range files {
		files[i] = fmt.Sprintf("test/dir%02d/case%03d.js", i%7, i)
	}
	agg := NewAggregator(files)

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			assert.NoError(t, agg.Record(types.TestRun{File: file, Outcome: types.OutcomePassed}))
		}(file)
	}
	wg.Wait()

	assert.Equal(t, len(files), agg.Completed())
	assert.Equal(t, len(files), agg.Totals()[types.OutcomePassed])
	assert.NoError(t, agg.Tree().Validate(true))
}
