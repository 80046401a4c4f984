package explain

import (
	"fmt"
	"strings"
)

// ToSchemaPointer converts a JSONPath expression or JSON Pointer into a
// schema-level JSON Pointer.
//
// Supported inputs:
//   - JSON Pointer: /properties/name is returned as-is
//   - JSONPath property access: $.name.age -> /properties/name/properties/age
//   - JSONPath bracket notation: $["name"] -> /properties/name
//   - JSONPath array index: $.items[0] -> /properties/items/items
//
// Array indices navigate to the schema's items sub-schema rather than a
// specific index, since a schema describes the shape of all array items.
func ToSchemaPointer(path string) (string, error) {
	if strings.HasPrefix(path, "/") {
		return path, nil
	}
	if !strings.HasPrefix(path, "$") {
		return "", fmt.Errorf("expected a JSON Pointer (/...) or JSONPath ($...), got '%s'", path)
	}
	rest := strings.TrimPrefix(path, "$")
	if rest == "" {
		return "", nil
	}

	var pointer strings.Builder
	runes := []rune(rest)
	i := 0
	for i < len(runes) {
		switch runes[i] {
		case '.':
			i++
			start := i
			for i < len(runes) && runes[i] != '.' && runes[i] != '[' {
				i++
			}
			if i == start {
				return "", fmt.Errorf("empty property name in path '%s'", path)
			}
			pointer.WriteString("/properties/")
			pointer.WriteString(string(runes[start:i]))
		case '[':
			i++
			if i < len(runes) && (runes[i] == '"' || runes[i] == '\'') {
				quote := runes[i]
				i++
				start := i
				for i < len(runes) && runes[i] != quote {
					i++
				}
				segment := string(runes[start:i])
				if i < len(runes) {
					i++ // closing quote
				}
				if i >= len(runes) || runes[i] != ']' {
					return "", fmt.Errorf("missing closing ']' in path '%s'", path)
				}
				i++
				pointer.WriteString("/properties/")
				pointer.WriteString(segment)
			} else {
				for i < len(runes) && runes[i] != ']' {
					i++
				}
				if i < len(runes) {
					i++
				}
				pointer.WriteString("/items")
			}
		default:
			return "", fmt.Errorf("unexpected character '%c' in path '%s'", runes[i], path)
		}
	}
	return pointer.String(), nil
}
