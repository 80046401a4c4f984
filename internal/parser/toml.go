package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// TOMLParser parses TOML documents.
type TOMLParser struct{}

func (TOMLParser) Parse(content []byte, filename string) (any, error) {
	var v map[string]any
	if err := toml.Unmarshal(content, &v); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			line, col := derr.Position()
			return nil, &Error{Offset: lineColToOffset(string(content), line, col), Message: derr.Error()}
		}
		return nil, &Error{Message: err.Error()}
	}
	return tomlValue(v), nil
}

func (TOMLParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	if uri, ok := tomlSchemaComment(string(content)); ok {
		return uri, true
	}
	return SchemaProperty(value)
}

// tomlSchemaComment scans the leading comment block for a schema
// directive: `# :schema URI` (the taplo convention) or the legacy
// `# $schema: URI`.
func tomlSchemaComment(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		comment := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if rest, ok := strings.CutPrefix(comment, ":schema "); ok {
			if uri := strings.TrimSpace(rest); uri != "" {
				return uri, true
			}
		}
		if rest, ok := strings.CutPrefix(comment, "$schema:"); ok {
			if uri := strings.TrimSpace(rest); uri != "" {
				return uri, true
			}
		}
	}
	return "", false
}

// tomlValue rewrites date and time values to their text form; TOML
// has native datetime types that JSON schemas can only see as strings.
func tomlValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = tomlValue(val)
		}
		return x
	case []any:
		for i := range x {
			x[i] = tomlValue(x[i])
		}
		return x
	case []map[string]any:
		seq := make([]any, len(x))
		for i := range x {
			seq[i] = tomlValue(x[i])
		}
		return seq
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case toml.LocalDate:
		return x.String()
	case toml.LocalDateTime:
		return x.String()
	case toml.LocalTime:
		return x.String()
	default:
		return v
	}
}
