package explain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// maxDepth bounds recursive property rendering.
const maxDepth = 3

// deprecatedTag returns a " [DEPRECATED]" tag when the schema is deprecated.
func deprecatedTag(schema any, s *styler) string {
	if boolField(schema, "deprecated") {
		return " " + s.dim.Sprint("[DEPRECATED]")
	}
	return ""
}

// renderVariantBlock renders one oneOf/anyOf/allOf variant. Variants with
// properties or a description expand inline; the rest get a summary line.
func renderVariantBlock(out *strings.Builder, resolved, original, root any, s *styler, index int) {
	var label string
	if title, ok := stringField(resolved, "title"); ok {
		label = title
	} else if ref, ok := stringField(original, "$ref"); ok {
		label = refName(ref)
	} else if ty := typeString(resolved); ty != "" {
		label = ty
	} else {
		label = fmt.Sprintf("variant %d", index)
	}

	props, _ := mapField(resolved, "properties")
	desc, hasDesc := description(resolved)

	if len(props) > 0 || hasDesc {
		suffix := formatTypeSuffix(typeString(resolved), s)
		fmt.Fprintf(out, "    %s %s%s%s\n",
			s.dim.Sprintf("(%d)", index), s.green.Sprint(label), deprecatedTag(resolved, s), suffix)
		if hasDesc {
			writeDescription(out, desc, s, "        ")
		}
		if len(props) > 0 {
			renderProperties(out, props, requiredSet(resolved), root, s, 2)
		}
	} else {
		fmt.Fprintf(out, "    %s %s\n", s.dim.Sprintf("(%d)", index), variantSummary(original, root, s))
	}
}

// renderProperties renders properties at a given indentation depth.
// Properties are ordered required first, then normal, then deprecated,
// alphabetically within each group.
func renderProperties(out *strings.Builder, props map[string]any, required []string, root any, s *styler, depth int) {
	indent := strings.Repeat("    ", depth)
	descIndent := indent + "    "

	names := sortedKeys(props)
	group := func(name string) int {
		g := 0
		if boolField(ResolveRef(props[name], root), "deprecated") {
			g += 2
		}
		if !containsString(required, name) {
			g++
		}
		return g
	}
	sort.SliceStable(names, func(i, j int) bool {
		return group(names[i]) < group(names[j])
	})

	for _, name := range names {
		prop := ResolveRef(props[name], root)
		reqTag := ""
		if containsString(required, name) {
			reqTag = ", " + s.red.Sprint("*required")
		}
		fmt.Fprintf(out, "%s%s%s (%s%s)\n",
			indent, s.green.Sprint(name), deprecatedTag(prop, s), formatType(typeString(prop), s), reqTag)

		renderPropertyDetails(out, prop, root, s, depth, descIndent)
		out.WriteByte('\n')
	}
}

// renderPropertyDetails renders a property's description, default, enum,
// const, examples, constraints, composition variants, and nested properties.
func renderPropertyDetails(out *strings.Builder, prop, root any, s *styler, depth int, descIndent string) {
	if desc, ok := description(prop); ok {
		writeDescription(out, desc, s, descIndent)
	}

	if def, ok := field(prop, "default"); ok {
		writeLabel(out, descIndent, "Default", s.magenta.Sprint(formatValue(def)))
	}

	if values, ok := arrayField(prop, "enum"); ok {
		parts := make([]string, 0, len(values))
		for _, v := range values {
			display, isStr := v.(string)
			if !isStr {
				display = jsonRepr(v)
			}
			parts = append(parts, s.magenta.Sprint(display))
		}
		writeLabel(out, descIndent, "Values", strings.Join(parts, ", "))
	}

	if c, ok := field(prop, "const"); ok {
		writeLabel(out, descIndent, "Constant", s.magenta.Sprint(jsonRepr(c)))
	}

	if examples, ok := arrayField(prop, "examples"); ok && len(examples) > 0 {
		parts := make([]string, 0, len(examples))
		for _, v := range examples {
			parts = append(parts, s.magenta.Sprint(formatValue(v)))
		}
		writeLabel(out, descIndent, "Examples", strings.Join(parts, ", "))
	}

	renderConstraints(out, prop, s, descIndent)

	for _, keyword := range compositionKeywords {
		variants, ok := arrayField(prop, keyword)
		if !ok {
			continue
		}
		label := keyword
		switch keyword {
		case "oneOf":
			label = "One of"
		case "anyOf":
			label = "Any of"
		case "allOf":
			label = "All of"
		}
		fmt.Fprintf(out, "%s%s\n", descIndent, s.dim.Sprint(label+":"))
		for i, variant := range variants {
			renderInlineVariant(out, ResolveRef(variant, root), variant, root, s, depth, descIndent, i+1)
		}
	}

	if depth < maxDepth {
		if nested, ok := mapField(prop, "properties"); ok {
			out.WriteByte('\n')
			renderProperties(out, nested, requiredSet(prop), root, s, depth+1)
		}
	}
}

// renderInlineVariant renders a variant inside a property's composition list.
// $ref variants stay one-line references (the DEFINITIONS section has the
// details); non-ref variants with properties expand when depth allows.
func renderInlineVariant(out *strings.Builder, resolved, original, root any, s *styler, depth int, descIndent string, index int) {
	_, isRef := field(original, "$ref")
	props, _ := mapField(resolved, "properties")

	if !isRef && len(props) > 0 && depth < maxDepth {
		var label string
		labelIsType := false
		if title, ok := stringField(resolved, "title"); ok {
			label = title
		} else if ty := typeString(resolved); ty != "" {
			label = ty
			labelIsType = true
		} else {
			label = fmt.Sprintf("variant %d", index)
		}
		suffix := ""
		if !labelIsType {
			suffix = formatTypeSuffix(typeString(resolved), s)
		}
		fmt.Fprintf(out, "%s  %s %s%s%s\n",
			descIndent, s.dim.Sprintf("(%d)", index), s.green.Sprint(label), deprecatedTag(resolved, s), suffix)
		if desc, ok := description(resolved); ok {
			writeDescription(out, desc, s, descIndent+"      ")
		}
		renderProperties(out, props, requiredSet(resolved), root, s, depth+2)
	} else {
		fmt.Fprintf(out, "%s  - %s\n", descIndent, variantSummary(original, root, s))
	}
}

// renderConstraints renders validation constraints (numeric bounds, string
// length, pattern, item counts, format) as a compact annotation line.
func renderConstraints(out *strings.Builder, schema any, s *styler, indent string) {
	var parts []string
	add := func(label, value string) {
		parts = append(parts, label+"="+s.magenta.Sprint(value))
	}

	if v, ok := stringField(schema, "format"); ok {
		add("format", v)
	}
	if v, ok := uintField(schema, "minLength"); ok {
		add("minLength", strconv.FormatUint(v, 10))
	}
	if v, ok := uintField(schema, "maxLength"); ok {
		add("maxLength", strconv.FormatUint(v, 10))
	}
	if v, ok := stringField(schema, "pattern"); ok {
		add("pattern", v)
	}
	for _, bound := range []struct{ key, label string }{
		{"minimum", "min"},
		{"maximum", "max"},
		{"exclusiveMinimum", "exclusiveMin"},
		{"exclusiveMaximum", "exclusiveMax"},
		{"multipleOf", "multipleOf"},
	} {
		if v, ok := field(schema, bound.key); ok {
			add(bound.label, jsonRepr(v))
		}
	}
	if v, ok := uintField(schema, "minItems"); ok {
		add("minItems", strconv.FormatUint(v, 10))
	}
	if v, ok := uintField(schema, "maxItems"); ok {
		add("maxItems", strconv.FormatUint(v, 10))
	}
	if boolField(schema, "uniqueItems") {
		parts = append(parts, s.magenta.Sprint("unique"))
	}
	if v, ok := uintField(schema, "minProperties"); ok {
		add("minProperties", strconv.FormatUint(v, 10))
	}
	if v, ok := uintField(schema, "maxProperties"); ok {
		add("maxProperties", strconv.FormatUint(v, 10))
	}

	if len(parts) > 0 {
		fmt.Fprintf(out, "%s%s %s\n", indent, s.dim.Sprint("Constraints:"), strings.Join(parts, ", "))
	}
}

// renderSubschema renders a sub-schema summary (type, description,
// properties) at a given depth.
func renderSubschema(out *strings.Builder, schema, root any, s *styler, depth int) {
	indent := strings.Repeat("    ", depth)
	schema = ResolveRef(schema, root)

	if ty := typeString(schema); ty != "" {
		writeLabel(out, indent, "Type", formatType(ty, s))
	}
	if desc, ok := description(schema); ok {
		writeDescription(out, desc, s, indent)
	}
	if depth < maxDepth {
		if props, ok := mapField(schema, "properties"); ok {
			renderProperties(out, props, requiredSet(schema), root, s, depth+1)
		}
	}
}
