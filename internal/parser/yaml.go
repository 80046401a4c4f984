package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses YAML documents.
//
// Decoding goes through the yaml.v3 node tree so mapping keys can be
// normalized to strings and timestamp scalars kept in their written
// form. The result is JSON-compatible throughout.
type YAMLParser struct{}

func (YAMLParser) Parse(content []byte, filename string) (any, error) {
	// Strip byte order marks anywhere in the document; the scanner
	// only tolerates a leading one.
	clean := bytes.ReplaceAll(content, []byte("\uFEFF"), nil)

	var doc yaml.Node
	if err := yaml.Unmarshal(clean, &doc); err != nil {
		msg := strings.TrimPrefix(err.Error(), "yaml: ")
		return nil, &Error{Offset: offsetFromMessage(string(clean), msg), Message: msg}
	}
	return yamlValue(&doc, string(clean))
}

func (YAMLParser) ExtractSchemaURI(content []byte, value any) (string, bool) {
	if uri, ok := yamlModeline(string(content)); ok {
		return uri, true
	}
	return SchemaProperty(value)
}

// yamlModeline scans the leading comment block for an editor modeline
// of the form `# yaml-language-server: $schema=URI`. Blank lines and
// other comments may precede it; the scan stops at the first content
// line.
func yamlModeline(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		if !strings.Contains(trimmed, "yaml-language-server:") {
			continue
		}
		_, after, found := strings.Cut(trimmed, "$schema=")
		if !found {
			continue
		}
		if uri := firstField(after); uri != "" {
			return uri, true
		}
	}
	return "", false
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// yamlValue converts a parsed node tree into a JSON-compatible value.
func yamlValue(n *yaml.Node, content string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0], content)
	case yaml.AliasNode:
		return yamlValue(n.Alias, content)
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c, content)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		obj := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			key, err := yamlKey(keyNode, content)
			if err != nil {
				return nil, err
			}
			if _, dup := obj[key]; dup {
				return nil, &Error{
					Offset:  yamlOffset(keyNode, content),
					Message: fmt.Sprintf("mapping key %q already defined", key),
				}
			}
			v, err := yamlValue(n.Content[i+1], content)
			if err != nil {
				return nil, err
			}
			obj[key] = v
		}
		return obj, nil
	case yaml.ScalarNode:
		return yamlScalar(n, content)
	default:
		// Zero node: empty document.
		return nil, nil
	}
}

// yamlKey normalizes a mapping key to a string, so `1:` becomes "1"
// and `true:` becomes "true".
func yamlKey(n *yaml.Node, content string) (string, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", &Error{Offset: yamlOffset(n, content), Message: "mapping keys must be scalars"}
	}
	return n.Value, nil
}

// yamlScalar decodes one scalar. Timestamps stay in their written
// form: yaml.v3 would otherwise produce a time.Time, which no JSON
// type matches.
func yamlScalar(n *yaml.Node, content string) (any, error) {
	if n.Tag == "!!timestamp" || n.Tag == "!!binary" {
		return n.Value, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		msg := strings.TrimPrefix(err.Error(), "yaml: ")
		return nil, &Error{Offset: yamlOffset(n, content), Message: msg}
	}
	return v, nil
}

// yamlOffset converts a node's 1-based position to a byte offset.
func yamlOffset(n *yaml.Node, content string) int {
	return lineColToOffset(content, n.Line, n.Column)
}
