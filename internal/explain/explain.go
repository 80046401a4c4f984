// Package explain renders JSON Schema documents as man-page style terminal
// documentation: a centered header, NAME/DESCRIPTION/TYPE sections, property
// listings with constraints and defaults, composition variants, and
// definitions. Schemas are plain decoded JSON values (map[string]any).
package explain

import (
	"fmt"
	"strings"
)

// ValidationError is a failed validation shown ahead of the schema docs.
type ValidationError struct {
	// InstancePath is the JSON Pointer to the failing instance
	// (e.g. /badges/appveyor). Empty means the document root.
	InstancePath string
	// Message is the human-readable error text.
	Message string
}

// Options control how schema documentation is rendered.
type Options struct {
	// Color enables ANSI styling and markdown rendering of descriptions.
	Color bool
	// Width is the terminal width in columns used for layout.
	Width int
	// Errors are validation errors to show before the documentation.
	Errors []ValidationError
}

// Explain renders a parsed JSON Schema as human-readable documentation.
// name is a display name for the header, typically from a catalog entry.
func Explain(schema any, name string, opts Options) string {
	var out strings.Builder
	s := newStyler(opts)

	header := formatHeader(strings.ToUpper(name), "JSON Schema", opts.Width)
	out.WriteString(s.bold.Sprint(header))
	out.WriteString("\n\n")

	if len(opts.Errors) > 0 {
		writeSection(&out, "VALIDATION ERRORS", s)
		for _, e := range opts.Errors {
			path := e.InstancePath
			if path == "" {
				path = "(root)"
			}
			fmt.Fprintf(&out, "    %s: %s\n", s.red.Sprint(path), e.Message)
		}
		out.WriteByte('\n')
	}

	title, ok := stringField(schema, "title")
	if !ok {
		title = name
	}

	writeSection(&out, "NAME", s)
	fmt.Fprintf(&out, "    %s\n", s.bold.Sprint(title))
	out.WriteByte('\n')

	if desc, ok := description(schema); ok {
		writeSection(&out, "DESCRIPTION", s)
		writeDescription(&out, desc, s, "    ")
		out.WriteByte('\n')
	}

	ty := typeString(schema)
	if ty != "" {
		writeSection(&out, "TYPE", s)
		fmt.Fprintf(&out, "    %s\n", formatType(ty, s))
		out.WriteByte('\n')
	}

	if props, ok := mapField(schema, "properties"); ok {
		writeSection(&out, "PROPERTIES", s)
		renderProperties(&out, props, requiredSet(schema), schema, s, 1)
		out.WriteByte('\n')
	}

	// An ITEMS section only appears when the item shape could not be folded
	// into the type string (e.g. untyped or described-only items).
	if ty == "array" {
		if items, ok := field(schema, "items"); ok {
			writeSection(&out, "ITEMS", s)
			renderSubschema(&out, items, schema, s, 1)
			out.WriteByte('\n')
		}
	}

	renderVariantsSection(&out, schema, s)
	renderDefinitionsSection(&out, schema, s)

	return out.String()
}

// ExplainAtPath renders the sub-schema at a JSON Pointer the same way
// Explain renders the root. name is used in the header.
func ExplainAtPath(schema any, pointer, name string, opts Options) (string, error) {
	sub, err := NavigatePointer(schema, schema, pointer)
	if err != nil {
		return "", err
	}
	return Explain(sub, name, opts), nil
}

// renderVariantsSection renders oneOf/anyOf/allOf variant sections.
func renderVariantsSection(out *strings.Builder, schema any, s *styler) {
	for _, keyword := range compositionKeywords {
		variants, ok := arrayField(schema, keyword)
		if !ok {
			continue
		}
		label := keyword
		switch keyword {
		case "oneOf":
			label = "ONE OF"
		case "anyOf":
			label = "ANY OF"
		case "allOf":
			label = "ALL OF"
		}
		writeSection(out, label, s)
		for i, variant := range variants {
			renderVariantBlock(out, ResolveRef(variant, schema), variant, schema, s, i+1)
		}
		out.WriteByte('\n')
	}
}

// renderDefinitionsSection renders the DEFINITIONS section ($defs/definitions).
func renderDefinitionsSection(out *strings.Builder, schema any, s *styler) {
	for _, defsKey := range []string{"$defs", "definitions"} {
		defs, ok := mapField(schema, defsKey)
		if !ok || len(defs) == 0 {
			continue
		}
		writeSection(out, "DEFINITIONS", s)
		for _, name := range sortedKeys(defs) {
			def := defs[name]
			suffix := formatTypeSuffix(typeString(def), s)
			fmt.Fprintf(out, "    %s%s\n", s.green.Sprint(name), suffix)
			if desc, ok := description(def); ok {
				writeDescription(out, desc, s, "        ")
			}
			if props, ok := mapField(def, "properties"); ok {
				renderProperties(out, props, requiredSet(def), schema, s, 2)
			}
			out.WriteByte('\n')
		}
	}
}
