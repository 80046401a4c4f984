package globset

import "strings"

// strategy identifies the cheapest dispatch bucket able to serve a
// pattern. Classification happens once, at build time.
type strategy int

const (
	// strategyLiteral matches an exact path by hash lookup.
	strategyLiteral strategy = iota
	// strategyExtensionAny serves `**/*.ext` by extension lookup.
	strategyExtensionAny
	// strategyExtensionLocal serves `*.ext` for paths without a slash.
	strategyExtensionLocal
	// strategySuffix serves `**/name` through the reverse trie.
	strategySuffix
	// strategyCompoundSuffix serves `**/*.a.b` through the reverse trie.
	strategyCompoundSuffix
	// strategyPrefix serves `dir/**` through the forward trie.
	strategyPrefix
	// strategyPrefixSuffix serves `dir/**/*.ext`: forward trie plus a
	// suffix check.
	strategyPrefixSuffix
	// strategyGlob is the backtracking fallback behind the literal
	// prefilter.
	strategyGlob
)

// classified is one brace-expanded variant with its bucket assignment.
// literal holds the exact path, extension, prefix or suffix the bucket
// keys on; verify carries the secondary suffix for strategyPrefixSuffix.
type classified struct {
	strategy strategy
	literal  string
	verify   string
}

func hasMeta(s string) bool { return strings.ContainsAny(s, `*?[{\`) }

// classify assigns a brace-free pattern to a bucket. Anything that does
// not fit a fast shape falls back to the glob bucket.
func classify(pattern string) classified {
	if !hasMeta(pattern) {
		return classified{strategy: strategyLiteral, literal: pattern}
	}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if rest != "" && !hasMeta(rest) {
			return classified{strategy: strategySuffix, literal: rest}
		}
		if ext, ok := strings.CutPrefix(rest, "*."); ok && ext != "" && !hasMeta(ext) && !strings.ContainsRune(ext, '/') {
			if !strings.ContainsRune(ext, '.') {
				return classified{strategy: strategyExtensionAny, literal: ext}
			}
			return classified{strategy: strategyCompoundSuffix, literal: "." + ext}
		}
		return classified{strategy: strategyGlob}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && ext != "" && !hasMeta(ext) && !strings.ContainsAny(ext, "./") {
		return classified{strategy: strategyExtensionLocal, literal: ext}
	}
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok && prefix != "" && !hasMeta(prefix) {
		return classified{strategy: strategyPrefix, literal: prefix + "/"}
	}
	if i := strings.Index(pattern, "/**/"); i > 0 && !hasMeta(pattern[:i]) {
		rest := pattern[i+len("/**/"):]
		if ext, ok := strings.CutPrefix(rest, "*."); ok && ext != "" && !hasMeta(ext) && !strings.ContainsRune(ext, '/') {
			return classified{
				strategy: strategyPrefixSuffix,
				literal:  pattern[:i] + "/",
				verify:   "." + ext,
			}
		}
	}
	return classified{strategy: strategyGlob}
}

// extensionOf returns the extension of path's final component, without
// the dot, or "" when it has none.
func extensionOf(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if j := strings.LastIndexByte(base, '.'); j >= 0 {
		return base[j+1:]
	}
	return ""
}

// longestLiteral extracts the longest contiguous literal fragment of a
// pattern for prefiltering. Every path the pattern matches must contain
// the fragment, so alternate-group bodies and class members contribute
// nothing and a `**/` contributes neither its stars nor its slash.
func longestLiteral(pattern string) string {
	var best, cur []byte
	flush := func() {
		if len(cur) > len(best) {
			best = cur
		}
		cur = nil
	}
	depth := 0
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '*' && strings.HasPrefix(pattern[i:], "**/") {
			if depth == 0 {
				flush()
			}
			i += 2
			continue
		}
		if c == '\\' {
			i++
			if depth == 0 && i < len(pattern) {
				cur = append(cur, pattern[i])
			}
			continue
		}
		switch c {
		case '{':
			depth++
			flush()
		case '}':
			if depth > 0 {
				depth--
			}
		case '[':
			flush()
			for i++; i < len(pattern) && pattern[i] != ']'; i++ {
				if pattern[i] == '\\' {
					i++
				}
			}
		case '*', '?':
			if depth == 0 {
				flush()
			}
		default:
			if depth == 0 {
				cur = append(cur, c)
			}
		}
	}
	flush()
	return string(best)
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
