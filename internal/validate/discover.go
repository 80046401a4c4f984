package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schemalint/schemalint/internal/globset"
	"github.com/schemalint/schemalint/internal/parser"
)

// globMeta are the characters that make an argument a glob rather than
// a literal path.
const globMeta = "*?[{"

// excludeSet holds compiled exclusion globs. Patterns that fail to
// compile are dropped at construction.
type excludeSet []*globset.Glob

func compileExcludes(patterns []string) excludeSet {
	set := make(excludeSet, 0, len(patterns))
	for _, pattern := range patterns {
		glob, err := globset.Compile(pattern)
		if err != nil {
			continue
		}
		set = append(set, glob)
	}
	return set
}

// Match reports whether path hits any exclude pattern. Paths are
// normalized to forward slashes with a leading ./ stripped so patterns
// written against repo-relative paths behave the same for walked and
// explicitly named files.
func (e excludeSet) Match(path string) bool {
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	for _, glob := range e {
		if glob.Match(path) {
			return true
		}
	}
	return false
}

// DiscoverFiles walks root and returns every file with a recognized
// format, sorted. The walk honors .gitignore files at every level,
// skips .git directories entirely, and keeps dotfiles.
func DiscoverFiles(root string, excludes []string) ([]string, error) {
	var files []string
	if err := walkDir(root, "", nil, compileExcludes(excludes), &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// walkDir recurses into dir; relDir is dir's path relative to the walk
// root ("" at the root). Ignored directories are pruned whole because
// git never re-includes anything below an ignored directory.
func walkDir(dir, relDir string, stack ignoreStack, excludes excludeSet, files *[]string) error {
	stack = stack.push(dir, relDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		rel := name
		if relDir != "" {
			rel = relDir + "/" + name
		}
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if name == ".git" {
				continue
			}
			if stack.Ignored(rel, true) {
				continue
			}
			if err := walkDir(path, rel, stack, excludes, files); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			// Symlinks count when they point at a regular file.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		if parser.DetectFormat(name) == parser.FormatUnknown {
			continue
		}
		if stack.Ignored(rel, false) {
			continue
		}
		if excludes.Match(path) {
			continue
		}
		*files = append(*files, path)
	}
	return nil
}

// collectFiles resolves command arguments into concrete file paths. No
// arguments walks the working directory; a directory argument walks
// that directory; anything else is treated as a glob or literal path,
// which bypasses gitignore filtering the way explicitly named files
// should.
func collectFiles(globs, excludes []string) ([]string, error) {
	if len(globs) == 0 {
		return DiscoverFiles(".", excludes)
	}

	set := compileExcludes(excludes)
	var files []string
	for _, pattern := range globs {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			discovered, err := DiscoverFiles(pattern, excludes)
			if err != nil {
				return nil, err
			}
			files = append(files, discovered...)
			continue
		}
		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		for _, path := range matches {
			if !set.Match(path) {
				files = append(files, path)
			}
		}
	}
	return files, nil
}

// expandGlob matches one glob argument against the filesystem. The
// walk starts at the longest literal directory prefix so patterns
// anchored deep in a tree do not scan unrelated directories. A literal
// argument without metacharacters yields itself when it names a file,
// whatever its extension.
func expandGlob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, globMeta) {
		info, err := os.Stat(pattern)
		if err != nil || !info.Mode().IsRegular() {
			return nil, nil
		}
		return []string{pattern}, nil
	}

	glob, err := globset.Compile(filepath.ToSlash(pattern))
	if err != nil {
		return nil, err
	}

	var matches []string
	walkErr := filepath.WalkDir(literalBase(pattern), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees cannot contribute matches.
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if glob.Match(filepath.ToSlash(path)) {
			matches = append(matches, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return matches, nil
}

// literalBase returns the deepest directory prefix of pattern that
// contains no glob metacharacters.
func literalBase(pattern string) string {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	var base []string
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, globMeta) {
			break
		}
		base = append(base, part)
	}
	if len(base) == 0 {
		return "."
	}
	joined := strings.Join(base, "/")
	if joined == "" {
		return string(filepath.Separator)
	}
	return filepath.FromSlash(joined)
}
