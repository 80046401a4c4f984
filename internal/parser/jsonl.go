package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Line is one parsed line of a JSONL document.
type Line struct {
	// Number is the 1-based line number in the file.
	Number int
	// Offset is the byte offset of the line start.
	Offset int
	// Value is the parsed JSON value.
	Value any
	// Raw is the line text without its trailing newline.
	Raw string
}

// SchemaMismatch is a line whose $schema differs from the first
// declared schema in the file.
type SchemaMismatch struct {
	Number    int
	Offset    int
	SchemaURI string
}

// JSONLParser parses newline-delimited JSON. Parse returns the first
// line's value, which identifies the schema for the whole file;
// per-line validation uses ParseJSONL directly.
type JSONLParser struct{}

func (JSONLParser) Parse(content []byte, filename string) (any, error) {
	lines, err := ParseJSONL(content)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &Error{Message: "empty JSONL file"}
	}
	return lines[0].Value, nil
}

func (JSONLParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	return SchemaProperty(value)
}

// ParseJSONL parses every line of a JSONL document. A leading BOM is
// stripped and offsets are relative to the stripped content. Empty
// lines keep their place in the numbering but produce no Line.
func ParseJSONL(content []byte) ([]Line, error) {
	text := strings.TrimPrefix(string(content), "\uFEFF")

	var lines []Line
	offset := 0
	// Splitting on \n keeps any \r in the slice, so len+1 advances
	// correctly for both LF and CRLF.
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			offset += len(raw) + 1
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			perr := jsonParseError([]byte(line), err)
			return nil, &Error{
				Offset:  offset + perr.Offset,
				Message: fmt.Sprintf("line %d: %s", i+1, perr.Message),
			}
		}
		lines = append(lines, Line{Number: i + 1, Offset: offset, Value: v, Raw: line})
		offset += len(raw) + 1
	}
	return lines, nil
}

// CheckSchemaConsistency reports lines whose $schema differs from the
// first declared schema. An empty result means the file is consistent
// or declares no schemas at all.
func CheckSchemaConsistency(lines []Line) []SchemaMismatch {
	first, found := "", false
	for _, line := range lines {
		if uri, ok := SchemaProperty(line.Value); ok {
			first, found = uri, true
			break
		}
	}
	if !found {
		return nil
	}
	var mismatches []SchemaMismatch
	for _, line := range lines {
		uri, ok := SchemaProperty(line.Value)
		if ok && uri != first {
			mismatches = append(mismatches, SchemaMismatch{Number: line.Number, Offset: line.Offset, SchemaURI: uri})
		}
	}
	return mismatches
}
