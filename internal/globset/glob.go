package globset

import (
	"errors"
	"fmt"
	"strings"
)

// Pattern syntax errors reported by Validate, Compile and Builder.Add.
var (
	ErrUnclosedClass      = errors.New("unclosed character class")
	ErrUnopenedAlternates = errors.New("unopened alternate group")
	ErrUnclosedAlternates = errors.New("unclosed alternate group")
	ErrDanglingEscape     = errors.New("dangling escape at end of pattern")
)

// RangeError reports a character class range whose bounds are inverted,
// such as [z-a].
type RangeError struct {
	Lo, Hi byte
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid character range %q-%q", e.Lo, e.Hi)
}

// Glob is a single compiled glob pattern.
//
// Supported syntax: `*` matches any run of characters within one path
// component, `**` matches whole components, `?` matches a single
// character, `[a-z]` and `[!a-z]` match character classes, `{a,b}`
// matches alternates and `\` escapes the next character. Matching is
// case-sensitive and `/` is the separator regardless of host OS.
//
// `**` follows the usual path-glob conventions: a leading `**/` may match
// zero components, so `**/foo.json` matches both `foo.json` and
// `a/b/foo.json`, while a trailing `/**` matches everything below a
// directory but not the directory itself.
type Glob struct {
	pattern  string
	variants []string
}

// Compile validates pattern and returns a matcher for it.
func Compile(pattern string) (*Glob, error) {
	if err := Validate(pattern); err != nil {
		return nil, err
	}
	return &Glob{pattern: pattern, variants: expandBraces(pattern)}, nil
}

// Pattern returns the source text the glob was compiled from.
func (g *Glob) Pattern() string { return g.pattern }

// Match reports whether path matches the pattern. Backslash separators in
// path are normalized to forward slashes first.
func (g *Glob) Match(path string) bool {
	path = normalizePath(path)
	for _, v := range g.variants {
		if matchGlob(v, path) {
			return true
		}
	}
	return false
}

// Validate checks pattern syntax without building a matcher.
func Validate(pattern string) error {
	depth := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i == len(pattern)-1 {
				return ErrDanglingEscape
			}
			i++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return ErrUnopenedAlternates
			}
			depth--
		case '[':
			end, err := checkClass(pattern, i)
			if err != nil {
				return err
			}
			i = end
		}
	}
	if depth != 0 {
		return ErrUnclosedAlternates
	}
	return nil
}

// checkClass scans the character class opening at pattern[start] and
// returns the index of its closing bracket.
func checkClass(pattern string, start int) (int, error) {
	i := start + 1
	if i < len(pattern) && (pattern[i] == '!' || pattern[i] == '^') {
		i++
	}
	member := i // a dash at the first member position is literal
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	for ; i < len(pattern); i++ {
		switch pattern[i] {
		case ']':
			return i, nil
		case '\\':
			if i == len(pattern)-1 {
				return 0, ErrDanglingEscape
			}
			i++
		case '-':
			if i > member && i+1 < len(pattern) && pattern[i+1] != ']' && pattern[i+1] != '\\' {
				if lo, hi := pattern[i-1], pattern[i+1]; lo > hi {
					return 0, &RangeError{Lo: lo, Hi: hi}
				}
			}
		}
	}
	return 0, ErrUnclosedClass
}

func normalizePath(path string) string {
	if strings.IndexByte(path, '\\') < 0 {
		return path
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// matchGlob matches a brace-free pattern against a path.
func matchGlob(pattern, path string) bool {
	return matchComponents(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

// matchComponents matches pattern components against path components.
// `**` spans whole components; in the final position it must consume at
// least one, so `a/**` matches everything below `a` but not `a` itself.
func matchComponents(pat, comps []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return len(comps) > 0
			}
			for skip := 0; skip <= len(comps); skip++ {
				if matchComponents(pat[1:], comps[skip:]) {
					return true
				}
			}
			return false
		}
		if len(comps) == 0 || !matchComponent(pat[0], comps[0]) {
			return false
		}
		pat = pat[1:]
		comps = comps[1:]
	}
	return len(comps) == 0
}

// matchComponent matches a single path component using iterative
// backtracking. A `**` that is not a whole component degrades to `*`.
func matchComponent(pat, s string) bool {
	px, sx := 0, 0
	starPx, starSx := -1, 0
	for {
		if px < len(pat) {
			switch c := pat[px]; c {
			case '*':
				starPx, starSx = px, sx
				px++
				continue
			case '?':
				if sx < len(s) {
					px++
					sx++
					continue
				}
			case '[':
				if sx < len(s) {
					if next, ok := matchClass(pat, px, s[sx]); ok {
						px = next
						sx++
						continue
					}
				}
			case '\\':
				if px+1 < len(pat) && sx < len(s) && s[sx] == pat[px+1] {
					px += 2
					sx++
					continue
				}
			default:
				if sx < len(s) && s[sx] == c {
					px++
					sx++
					continue
				}
			}
		} else if sx == len(s) {
			return true
		}
		if starPx >= 0 && starSx < len(s) {
			starSx++
			px = starPx + 1
			sx = starSx
			continue
		}
		return false
	}
}

// matchClass matches b against the class opening at pat[start], returning
// the index just past the closing bracket and whether b is a member.
func matchClass(pat string, start int, b byte) (int, bool) {
	i := start + 1
	negate := false
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		negate = true
		i++
	}
	matched := false
	first := true
	for i < len(pat) {
		if pat[i] == ']' && !first {
			return i + 1, matched != negate
		}
		first = false
		lo := pat[i]
		if lo == '\\' && i+1 < len(pat) {
			i++
			lo = pat[i]
		}
		if i+2 < len(pat) && pat[i+1] == '-' && pat[i+2] != ']' {
			hi := pat[i+2]
			j := i + 2
			if hi == '\\' && i+3 < len(pat) {
				j++
				hi = pat[j]
			}
			if lo <= b && b <= hi {
				matched = true
			}
			i = j + 1
			continue
		}
		if b == lo {
			matched = true
		}
		i++
	}
	return len(pat), false
}
