package explain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// styler carries the color palette and layout width used while rendering.
// Colors are forced on or off per instance so output is deterministic
// regardless of the process-wide color settings.
type styler struct {
	width   int
	colored bool

	bold    *color.Color
	dim     *color.Color
	cyan    *color.Color // type annotations
	green   *color.Color // property names
	yellow  *color.Color // section headers
	magenta *color.Color // values (defaults, enums, constants)
	red     *color.Color // required markers and validation errors
}

func newStyler(opts Options) *styler {
	s := &styler{
		width:   opts.Width,
		colored: opts.Color,
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
		cyan:    color.New(color.FgCyan),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		magenta: color.New(color.FgMagenta),
		red:     color.New(color.FgRed),
	}
	for _, c := range []*color.Color{s.bold, s.dim, s.cyan, s.green, s.yellow, s.magenta, s.red} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// compositionKeywords lists the schema composition keywords in render order.
var compositionKeywords = []string{"oneOf", "anyOf", "allOf"}

// formatType colors a type string. Union types ("a | b") get each
// alternative colored separately, array types ("string[]") keep the
// suffix with the element type.
func formatType(ty string, s *styler) string {
	if ty == "" {
		return ""
	}
	if strings.Contains(ty, " | ") {
		parts := strings.Split(ty, " | ")
		for i, p := range parts {
			parts[i] = s.cyan.Sprint(p)
		}
		return strings.Join(parts, " "+s.dim.Sprint("|")+" ")
	}
	if strings.HasSuffix(ty, "[]") {
		return formatType(strings.TrimSuffix(ty, "[]"), s) + s.cyan.Sprint("[]")
	}
	return s.cyan.Sprint(ty)
}

// formatTypeSuffix formats a parenthesized type suffix, e.g. " (string)".
// Returns an empty string when ty is empty.
func formatTypeSuffix(ty string, s *styler) string {
	if ty == "" {
		return ""
	}
	return " (" + formatType(ty, s) + ")"
}

// formatValue renders a JSON value for display. Strings keep plain
// surrounding quotes, everything else uses its JSON representation.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return "\"" + s + "\""
	}
	return jsonRepr(v)
}

// jsonRepr returns the compact JSON encoding of v without HTML escaping.
func jsonRepr(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// formatHeader builds a centered header line: LEFT      CENTER      LEFT.
// The result is exactly width columns unless the content doesn't fit.
func formatHeader(left, center string, width int) string {
	total := 2*len(left) + len(center)
	if total >= width {
		return left + "  " + center + "  " + left
	}
	space := width - total
	pad := space / 2
	return left + strings.Repeat(" ", pad) + center + strings.Repeat(" ", space-pad) + left
}

// writeSection writes a section header line.
func writeSection(out *strings.Builder, label string, s *styler) {
	out.WriteString(s.yellow.Sprint(label))
	out.WriteByte('\n')
}

// writeLabel writes a metadata label with a pre-formatted value.
func writeLabel(out *strings.Builder, indent, label, value string) {
	fmt.Fprintf(out, "%s%s: %s\n", indent, label, value)
}

// writeDescription writes a multi-line description. With color enabled the
// markdown is rendered to ANSI and wrapped to the available width; without
// color the raw text is written as-is. Non-blank lines get the indent.
func writeDescription(out *strings.Builder, text string, s *styler, indent string) {
	rendered := text
	if s.colored {
		avail := s.width - len(indent)
		if avail < 0 {
			avail = 0
		}
		rendered = renderMarkdown(text, avail)
	}
	for _, line := range strings.Split(rendered, "\n") {
		if strings.TrimSpace(line) == "" {
			out.WriteByte('\n')
		} else {
			out.WriteString(indent)
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
}
