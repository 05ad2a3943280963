package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFiles(t *testing.T, relPaths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range relPaths {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("// test\n"), 0o644))
	}
	return root
}

func TestFindTests(t *testing.T) {
	root := writeCorpusFiles(t,
		"test/language/types/number.js",
		"test/language/types/string.js",
		"test/built-ins/Array/length.js",
		"test/built-ins/Array/proxy_FIXTURE.js",
		"test/built-ins/Array/notes.md",
		"harness/assert.js",
	)

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "default pattern",
			pattern: "test/**/*.js",
			want: []string{
				"test/built-ins/Array/length.js",
				"test/language/types/number.js",
				"test/language/types/string.js",
			},
		},
		{
			name:    "subtree",
			pattern: "test/language/**/*.js",
			want: []string{
				"test/language/types/number.js",
				"test/language/types/string.js",
			},
		},
		{
			name:    "segment wildcard",
			pattern: "test/*/Array/*.js",
			want:    []string{"test/built-ins/Array/length.js"},
		},
		{
			name:    "single file",
			pattern: "test/language/types/number.js",
			want:    []string{"test/language/types/number.js"},
		},
		{
			name:    "no matches",
			pattern: "test/**/*.mjs",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindTests(root, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindTestsExcludesFixtures(t *testing.T) {
	root := writeCorpusFiles(t,
		"test/module/import_FIXTURE.js",
		"test/module/import.js",
	)
	got, err := FindTests(root, "test/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"test/module/import.js"}, got)
}

func TestFindTestsInvalidPattern(t *testing.T) {
	_, err := FindTests(t.TempDir(), "test/[bad")
	assert.Error(t, err)
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"test/**/*.js", "test/a/b/c.js", true},
		{"test/**/*.js", "test/c.js", true},
		{"test/**/*.js", "harness/c.js", false},
		{"**/*.js", "c.js", true},
		{"test/*.js", "test/a/b.js", false},
		{"test/**", "test/a/b.js", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchGlob(tt.pattern, tt.name), "%s vs %s", tt.pattern, tt.name)
	}
}
