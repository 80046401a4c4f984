package validate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/schemalint/schemalint/internal/globset"
)

// ignoreRule is one compiled .gitignore pattern, rewritten to match
// paths relative to the walk root.
type ignoreRule struct {
	glob    *globset.Glob
	negated bool
	dirOnly bool
}

// ignoreFile holds the rules of a single .gitignore in file order.
type ignoreFile struct {
	rules []ignoreRule
}

// parseIgnoreFile compiles .gitignore content. baseRel is the directory
// containing the file, relative to the walk root with forward slashes,
// or "" for the root itself. Patterns that fail to compile are dropped,
// which is how git treats malformed lines.
func parseIgnoreFile(baseRel string, content []byte) *ignoreFile {
	parsed := &ignoreFile{}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSuffix(raw, "\r")
		line = strings.TrimRight(line, " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if line == "" {
			continue
		}

		// A slash anywhere in the pattern anchors it to the
		// .gitignore's own directory; otherwise it matches at any
		// depth below it.
		anchored := strings.HasPrefix(line, "/")
		line = strings.TrimPrefix(line, "/")
		anchored = anchored || strings.Contains(line, "/")
		if !anchored {
			line = "**/" + line
		}

		glob, err := globset.Compile(joinPattern(baseRel, line))
		if err != nil {
			continue
		}
		rule.glob = glob
		parsed.rules = append(parsed.rules, rule)
	}
	return parsed
}

func joinPattern(base, pattern string) string {
	if base == "" {
		return pattern
	}
	return base + "/" + pattern
}

// ignoreStack is the chain of .gitignore files from the walk root down
// to the directory currently being visited.
type ignoreStack []*ignoreFile

// push extends the stack with dir's .gitignore, if one exists. baseRel
// is dir relative to the walk root.
func (s ignoreStack) push(dir, baseRel string) ignoreStack {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return s
	}
	return append(s, parseIgnoreFile(baseRel, data))
}

// Ignored reports whether the root-relative path should be skipped.
// Rules run in file order from the shallowest .gitignore down, so
// deeper files override shallower ones and within a file the last
// matching rule wins.
func (s ignoreStack) Ignored(relPath string, isDir bool) bool {
	ignored := false
	for _, file := range s {
		for _, rule := range file.rules {
			if rule.dirOnly && !isDir {
				continue
			}
			if rule.glob.Match(relPath) {
				ignored = !rule.negated
			}
		}
	}
	return ignored
}
