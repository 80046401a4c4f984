package parser

import (
	"errors"
	"strings"
	"unicode"
)

// MarkdownParser extracts and parses frontmatter from Markdown
// documents. YAML frontmatter sits between `---` lines, TOML
// frontmatter between `+++` lines; either may be preceded by HTML
// comments. A document without frontmatter parses to nil so the
// pipeline skips it.
type MarkdownParser struct{}

func (MarkdownParser) Parse(content []byte, filename string) (any, error) {
	text := string(content)

	if front, offset, ok := frontmatter(text, "---"); ok {
		v, err := (YAMLParser{}).Parse([]byte(front), filename)
		if err != nil {
			return nil, frontmatterError("YAML", offset, err)
		}
		return v, nil
	}
	if front, offset, ok := frontmatter(text, "+++"); ok {
		v, err := (TOMLParser{}).Parse([]byte(front), filename)
		if err != nil {
			return nil, frontmatterError("TOML", offset, err)
		}
		return v, nil
	}
	return nil, nil
}

// ExtractSchemaURI prefers a $schema property in the frontmatter, then
// falls back to a `<!-- $schema: URI -->` comment above it.
func (MarkdownParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	if uri, ok := SchemaProperty(value); ok {
		return uri, true
	}
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(trimmed, "<!--"); ok {
			rest = strings.TrimSpace(rest)
			if rest, ok := strings.CutPrefix(rest, "$schema:"); ok {
				uri := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "-->"))
				if uri != "" {
					return uri, true
				}
			}
		}
		if trimmed == "---" || trimmed == "+++" {
			break
		}
	}
	return "", false
}

// frontmatter extracts the block delimited by marker lines, returning
// the block and its byte offset in content. The opening marker must be
// followed by a newline and the closing marker must start a line.
func frontmatter(content, marker string) (string, int, bool) {
	s, offset := skipHTMLComments(content)
	if !strings.HasPrefix(s, marker) {
		return "", 0, false
	}
	afterOpen := s[len(marker):]
	afterNewline, ok := strings.CutPrefix(afterOpen, "\n")
	if !ok {
		afterNewline, ok = strings.CutPrefix(afterOpen, "\r\n")
		if !ok {
			return "", 0, false
		}
	}
	start := offset + len(marker) + (len(afterOpen) - len(afterNewline))
	closing := strings.Index(afterNewline, "\n"+marker)
	if closing < 0 {
		return "", 0, false
	}
	return afterNewline[:closing], start, true
}

// skipHTMLComments returns content with leading whitespace and
// complete `<!-- -->` comments removed, plus the byte offset of the
// remainder. An unclosed comment stops the scan.
func skipHTMLComments(content string) (string, int) {
	s := strings.TrimLeftFunc(content, unicode.IsSpace)
	offset := len(content) - len(s)
	for strings.HasPrefix(s, "<!--") {
		end := strings.Index(s, "-->")
		if end < 0 {
			break
		}
		after := strings.TrimLeftFunc(s[end+3:], unicode.IsSpace)
		offset += len(s) - len(after)
		s = after
	}
	return s, offset
}

// frontmatterError rebases a frontmatter parse error onto the full
// document and labels it with the frontmatter kind.
func frontmatterError(kind string, base int, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return &Error{Offset: base + perr.Offset, Message: kind + " frontmatter: " + perr.Message}
	}
	return &Error{Offset: base, Message: kind + " frontmatter: " + err.Error()}
}
