package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// JSONParser parses strict JSON.
type JSONParser struct{}

func (JSONParser) Parse(content []byte, filename string) (any, error) {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, jsonParseError(content, err)
	}
	return v, nil
}

func (JSONParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	return SchemaProperty(value)
}

// JSONCParser parses JSON with comments and trailing commas by
// standardizing to strict JSON first. Standardization replaces
// comments and trailing commas with spaces, so byte offsets in the
// standardized form still point at the right spot in the original.
type JSONCParser struct{}

func (JSONCParser) Parse(content []byte, filename string) (any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &Error{Message: "empty JSONC document"}
	}
	std, err := hujson.Standardize(content)
	if err != nil {
		msg := strings.TrimPrefix(err.Error(), "hujson: ")
		return nil, &Error{Offset: offsetFromMessage(string(content), msg), Message: msg}
	}
	var v any
	if err := json.Unmarshal(std, &v); err != nil {
		return nil, jsonParseError(std, err)
	}
	return v, nil
}

func (JSONCParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	return SchemaProperty(value)
}

// JSON5Parser parses JSON5.
type JSON5Parser struct{}

func (JSON5Parser) Parse(content []byte, filename string) (any, error) {
	var v any
	if err := json5.Unmarshal(content, &v); err != nil {
		var syn *json5.SyntaxError
		if errors.As(err, &syn) {
			return nil, &Error{Offset: clampOffset(int(syn.Offset)-1, len(content)), Message: syn.Error()}
		}
		return nil, &Error{Message: err.Error()}
	}
	return v, nil
}

func (JSON5Parser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	return SchemaProperty(value)
}

// jsonParseError converts an encoding/json error into an *Error
// positioned at the offending byte.
func jsonParseError(content []byte, err error) *Error {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return &Error{Offset: clampOffset(int(syn.Offset)-1, len(content)), Message: syn.Error()}
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return &Error{Offset: clampOffset(int(typ.Offset)-1, len(content)), Message: typ.Error()}
	}
	return &Error{Message: err.Error()}
}

func clampOffset(off, limit int) int {
	if off < 0 {
		return 0
	}
	if off > limit {
		return limit
	}
	return off
}
