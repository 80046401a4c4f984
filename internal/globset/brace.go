package globset

// maxBraceDepth bounds alternate-group nesting during expansion.
const maxBraceDepth = 10

// expandBraces returns every brace-free variant of pattern. `{a,b}`
// groups may nest; a pattern without groups expands to itself and
// unbalanced groups are returned untouched (Validate rejects them before
// matching ever sees one).
func expandBraces(pattern string) []string {
	return expandBracesDepth(pattern, 0)
}

func expandBracesDepth(pattern string, depth int) []string {
	if depth > maxBraceDepth {
		return []string{pattern}
	}
	open := -1
	level := 0
	inClass := false
	segStart := 0
	var parts []string
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' {
			i++
			continue
		}
		if inClass {
			if c == ']' {
				inClass = false
			}
			continue
		}
		switch c {
		case '[':
			inClass = true
		case '{':
			level++
			if level == 1 {
				open = i
				segStart = i + 1
				parts = parts[:0]
			}
		case ',':
			if level == 1 {
				parts = append(parts, pattern[segStart:i])
				segStart = i + 1
			}
		case '}':
			if level == 0 {
				continue
			}
			level--
			if level == 0 {
				parts = append(parts, pattern[segStart:i])
				var out []string
				for _, p := range parts {
					expanded := expandBracesDepth(pattern[:open]+p+pattern[i+1:], depth+1)
					out = append(out, expanded...)
				}
				return out
			}
		}
	}
	return []string{pattern}
}
