package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FindTests walks the corpus and returns the sorted, slash-separated relative
// paths matching pattern. A pattern naming an existing file directly selects
// just that file. Fixture files, which the harness includes from other tests
// but never runs on their own, are always excluded.
func FindTests(corpusRoot, pattern string) ([]string, error) {
	if info, err := os.Stat(filepath.Join(corpusRoot, pattern)); err == nil && info.Mode().IsRegular() {
		return []string{filepath.ToSlash(pattern)}, nil
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(corpusRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(corpusRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isFixture(rel) {
			return nil
		}
		if matchGlob(pattern, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus %s: %w", corpusRoot, err)
	}
	sort.Strings(files)
	return files, nil
}

func isFixture(rel string) bool {
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	return strings.HasSuffix(stem, "FIXTURE")
}

func validatePattern(pattern string) error {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// matchGlob matches a slash-separated relative path against a pattern where
// ** spans any number of path segments and the remaining segments follow
// path.Match rules.
func matchGlob(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for skip := 0; skip <= len(parts); skip++ {
			if matchSegments(pattern[1:], parts[skip:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, err := path.Match(pattern[0], parts[0]); err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}
