package diagnostics

import "strings"

// DefaultLabel is the span annotation used when no instance path is
// available.
const DefaultLabel = "here"

// OffsetToLineCol converts a byte offset into 1-based (line, column).
// Columns count runes, not bytes. Offsets past the end clamp to the last
// position; empty content is (1, 1).
func OffsetToLineCol(content string, offset int) (int, int) {
	if offset > len(content) {
		offset = len(content)
	}
	line, col := 1, 1
	for i, ch := range content {
		if i >= offset {
			break
		}
		if ch == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// firstContentOffset returns the byte offset of the first line that is
// neither blank nor a comment (`#` or `//`), so root-level errors point
// at actual content rather than a modeline. Returns 0 when every line is
// a comment.
func firstContentOffset(content string) int {
	offset := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "//") {
			return offset + (len(line) - len(trimmed))
		}
		offset += len(line) + 1
	}
	return 0
}

// FindInstancePathSpan locates the byte span of a JSON pointer's final
// segment in source text. The segment is searched for as a JSON key
// ("name") anywhere, then as a YAML key (name:) at the start of a line.
//
// Root-level paths ("" or "/") return a zero-length span at the first
// content line. Falls back to a zero span at offset 0 when nothing
// matches.
func FindInstancePathSpan(content, instancePath string) Span {
	if instancePath == "" || instancePath == "/" {
		return Span{Start: firstContentOffset(content)}
	}

	segment := instancePath[strings.LastIndex(instancePath, "/")+1:]
	if segment == "" {
		return Span{}
	}

	// JSON-style key, highlighted including the quotes. This also covers
	// quoted YAML keys such as "on":.
	jsonKey := `"` + segment + `"`
	if pos := strings.Index(content, jsonKey); pos >= 0 {
		return Span{Start: pos, Len: len(jsonKey)}
	}

	yamlKey := segment + ":"
	offset := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, yamlKey) {
			return Span{Start: offset + (len(line) - len(trimmed)), Len: len(segment)}
		}
		offset += len(line) + 1
	}

	return Span{}
}

// FormatLabel combines the instance path with the schema path that
// raised the error.
func FormatLabel(instancePath, schemaPath string) string {
	if schemaPath == "" {
		return instancePath
	}
	return instancePath + " in " + schemaPath
}
