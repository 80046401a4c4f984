package explain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// field returns the value stored under key when v is a JSON object.
func field(v any, key string) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := m[key]
	return val, ok
}

func stringField(v any, key string) (string, bool) {
	val, ok := field(v, key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

func boolField(v any, key string) bool {
	val, _ := field(v, key)
	b, _ := val.(bool)
	return b
}

func arrayField(v any, key string) ([]any, bool) {
	val, ok := field(v, key)
	if !ok {
		return nil, false
	}
	arr, ok := val.([]any)
	return arr, ok
}

func mapField(v any, key string) (map[string]any, bool) {
	val, ok := field(v, key)
	if !ok {
		return nil, false
	}
	m, ok := val.(map[string]any)
	return m, ok
}

// uintField returns the non-negative integer under key, if it is one.
func uintField(v any, key string) (uint64, bool) {
	val, ok := field(v, key)
	if !ok {
		return 0, false
	}
	f, ok := val.(float64)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return uint64(f), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// refName extracts the trailing name from a $ref path
// (e.g. "#/$defs/Foo" -> "Foo").
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// decodePointerSegment decodes an RFC 6901 segment (~1 -> /, ~0 -> ~).
func decodePointerSegment(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// ResolveRef resolves a local "#/" $ref within the same schema document.
// Schemas without a resolvable local ref are returned unchanged.
func ResolveRef(schema, root any) any {
	ref, ok := stringField(schema, "$ref")
	if !ok || !strings.HasPrefix(ref, "#/") {
		return schema
	}
	current := root
	for _, segment := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		m, ok := current.(map[string]any)
		if !ok {
			return schema
		}
		next, ok := m[decodePointerSegment(segment)]
		if !ok {
			return schema
		}
		current = next
	}
	return current
}

// NavigatePointer walks a JSON Pointer through a schema, resolving local
// $refs at each step. Segments are decoded per RFC 6901 (~1 -> /, ~0 -> ~).
// Returns the sub-schema at the pointer, or an error naming the segment
// that could not be resolved.
func NavigatePointer(schema, root any, pointer string) (any, error) {
	path := strings.TrimPrefix(pointer, "/")
	if path == "" {
		return schema, nil
	}

	current := ResolveRef(schema, root)
	for _, segment := range strings.Split(path, "/") {
		decoded := decodePointerSegment(segment)
		current = ResolveRef(current, root)

		if m, ok := current.(map[string]any); ok {
			if next, ok := m[decoded]; ok {
				current = next
				continue
			}
		}
		if arr, ok := current.([]any); ok {
			if idx, err := strconv.Atoi(decoded); err == nil && idx >= 0 && idx < len(arr) {
				current = arr[idx]
				continue
			}
		}
		return nil, fmt.Errorf("cannot resolve segment '%s' in pointer '%s'", decoded, pointer)
	}
	return ResolveRef(current, root), nil
}

// requiredSet extracts the required array from a schema.
func requiredSet(schema any) []string {
	arr, ok := arrayField(schema, "required")
	if !ok {
		return nil
	}
	var req []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			req = append(req, s)
		}
	}
	return req
}

// typeString produces a short human-readable type for a schema, or "" when
// none can be derived. Array schemas fold the item type into an "[]" suffix,
// type lists and composition variants join with " | ".
func typeString(schema any) string {
	if ty, ok := field(schema, "type"); ok {
		switch t := ty.(type) {
		case string:
			if t == "array" {
				if items, ok := field(schema, "items"); ok {
					if itemTy := typeString(items); itemTy != "" {
						return itemTy + "[]"
					}
				}
				return "array"
			}
			return t
		case []any:
			var types []string
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			return strings.Join(types, " | ")
		default:
			return ""
		}
	}

	if ref, ok := stringField(schema, "$ref"); ok {
		return refName(ref)
	}

	for _, keyword := range []string{"oneOf", "anyOf"} {
		variants, ok := arrayField(schema, keyword)
		if !ok {
			continue
		}
		var types []string
		for _, v := range variants {
			if ty := typeString(v); ty != "" {
				types = append(types, ty)
			} else if ref, ok := stringField(v, "$ref"); ok {
				types = append(types, refName(ref))
			}
		}
		if len(types) > 0 {
			return strings.Join(types, " | ")
		}
	}

	if c, ok := field(schema, "const"); ok {
		return "const: " + jsonRepr(c)
	}
	if _, ok := field(schema, "enum"); ok {
		return "enum"
	}
	return ""
}

// description returns the best description text, preferring markdownDescription.
func description(schema any) (string, bool) {
	if s, ok := stringField(schema, "markdownDescription"); ok {
		return s, true
	}
	return stringField(schema, "description")
}

// variantSummary produces a one-line summary of a variant schema for
// oneOf/anyOf/allOf listings.
func variantSummary(variant, root any, s *styler) string {
	resolved := ResolveRef(variant, root)
	dep := deprecatedTag(resolved, s)

	// Title first: best label for any variant.
	if title, ok := stringField(resolved, "title"); ok {
		ty := typeString(resolved)
		if ty == "" {
			return s.bold.Sprint(title) + dep
		}
		return s.bold.Sprint(title) + dep + " (" + formatType(ty, s) + ")"
	}

	// $ref variants without a title: show the ref name; DEFINITIONS has details.
	if ref, ok := stringField(variant, "$ref"); ok {
		if strings.HasPrefix(ref, "#/") {
			return s.cyan.Sprint(refName(ref)) + dep
		}
		return s.dim.Sprint("(see: "+ref+")") + dep
	}

	if desc, ok := description(resolved); ok {
		rendered := firstSentence(desc)
		if s.colored {
			rendered = renderInlineMarkdown(rendered)
		}
		if ty := typeString(resolved); ty != "" {
			return formatType(ty, s) + " - " + rendered + dep
		}
		return rendered + dep
	}

	if ty := typeString(resolved); ty != "" {
		return formatType(ty, s) + dep
	}
	return s.dim.Sprint("(schema)") + dep
}

// firstSentence extracts the first paragraph or line of a description for
// one-line summaries.
func firstSentence(desc string) string {
	trimmed := strings.TrimSpace(desc)
	if i := strings.Index(trimmed, "\n\n"); i >= 0 {
		if first := strings.TrimSpace(trimmed[:i]); first != "" {
			return first
		}
	}
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		if first := strings.TrimSpace(trimmed[:i]); first != "" {
			return first
		}
	}
	return trimmed
}
