// Package parser reads configuration documents in any supported format
// into JSON-compatible values and discovers the schema URI each
// document declares.
package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Format identifies a supported document format.
type Format int

const (
	// FormatUnknown is an unrecognized file extension.
	FormatUnknown Format = iota
	// FormatJSON is strict JSON.
	FormatJSON
	// FormatJSONC is JSON with comments and trailing commas.
	FormatJSONC
	// FormatJSON5 is JSON5.
	FormatJSON5
	// FormatYAML is YAML.
	FormatYAML
	// FormatTOML is TOML.
	FormatTOML
	// FormatMarkdown is Markdown with frontmatter.
	FormatMarkdown
	// FormatJSONL is newline-delimited JSON.
	FormatJSONL
)

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatJSONC:
		return "jsonc"
	case FormatJSON5:
		return "json5"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatMarkdown:
		return "markdown"
	case FormatJSONL:
		return "jsonl"
	default:
		return "unknown"
	}
}

// DetectFormat maps a file extension to its format.
//
// .json files are treated as JSONC: comments and trailing commas are
// common in the wild (tsconfig.json, VS Code settings) and strict JSON
// is a subset of what the JSONC parser accepts.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json5":
		return FormatJSON5
	case ".json", ".jsonc":
		return FormatJSONC
	case ".toml":
		return FormatTOML
	case ".md", ".mdx":
		return FormatMarkdown
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatUnknown
	}
}

// Parser parses one document format into a JSON-compatible value.
type Parser interface {
	// Parse converts content into a JSON-compatible value. Failures
	// are reported as *Error with a byte offset into content.
	Parse(content []byte, filename string) (any, error)

	// ExtractSchemaURI returns the schema URI the document declares,
	// either as a $schema property or through a format-specific
	// comment convention.
	ExtractSchemaURI(content []byte, value any) (string, bool)
}

// ParserFor returns the parser for a format, or nil for FormatUnknown.
func ParserFor(f Format) Parser {
	switch f {
	case FormatJSON:
		return JSONParser{}
	case FormatJSONC:
		return JSONCParser{}
	case FormatJSON5:
		return JSON5Parser{}
	case FormatYAML:
		return YAMLParser{}
	case FormatTOML:
		return TOMLParser{}
	case FormatMarkdown:
		return MarkdownParser{}
	case FormatJSONL:
		return JSONLParser{}
	default:
		return nil
	}
}

// parseAnyOrder is the fallback chain for files whose extension did
// not identify a format. JSONC goes first: it is a superset of JSON
// and handles comments. YAML and TOML cover the remaining common
// config formats.
var parseAnyOrder = []Format{FormatJSONC, FormatYAML, FormatTOML, FormatJSON, FormatJSON5}

// ParseAny tries each format in a fixed order and returns the first
// successful parse along with its format.
func ParseAny(content []byte, filename string) (any, Format, bool) {
	for _, f := range parseAnyOrder {
		v, err := ParserFor(f).Parse(content, filename)
		if err == nil {
			return v, f, true
		}
	}
	return nil, FormatUnknown, false
}

// Error is a parse failure located at a byte offset into the document.
type Error struct {
	Offset  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// lineColToOffset converts a 1-based line and column to a byte offset.
// Positions past the end of content clamp to len(content).
func lineColToOffset(content string, line, col int) int {
	offset := 0
	for i, l := range strings.Split(content, "\n") {
		if i+1 == line {
			if col < 1 {
				col = 1
			}
			return min(offset+col-1, len(content))
		}
		offset += len(l) + 1
	}
	return min(offset, len(content))
}

var lineColRe = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)

// offsetFromMessage recovers a byte offset from parsers that only
// expose "line N" or "line N, column M" positions in their error text.
func offsetFromMessage(content, msg string) int {
	m := lineColRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	line, _ := strconv.Atoi(m[1])
	col := 1
	if m[2] != "" {
		col, _ = strconv.Atoi(m[2])
	}
	return lineColToOffset(content, line, col)
}

// SchemaProperty reads a $schema string property from a parsed value.
// Callers that need to tell an inline property apart from a modeline
// compare this against the URI ExtractSchemaURI returned.
func SchemaProperty(value any) (string, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	uri, ok := obj["$schema"].(string)
	return uri, ok
}
