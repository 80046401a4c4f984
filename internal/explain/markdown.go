package explain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ANSI codes used by the markdown renderer. These stay raw because styles
// open and close at different points of the AST walk, which a wrap-style
// color API cannot express. The link wrapper is an OSC 8 hyperlink.
const (
	ansiReset     = "\x1b[0m"
	ansiBold      = "\x1b[1m"
	ansiItalic    = "\x1b[3m"
	ansiUnderline = "\x1b[4m"
	ansiBlue      = "\x1b[34m"
)

// renderMarkdown converts markdown to ANSI terminal text: paragraphs are
// reflowed, headings bolded, fenced code blocks kept verbatim with their
// fences, lists given "-" or "N." prefixes, and inline code, emphasis, and
// links styled. width > 0 enables word wrapping to that many columns.
func renderMarkdown(markdown string, width int) string {
	return renderMarkdownAST(markdown, width, false)
}

// renderInlineMarkdown renders inline markdown only (code spans, emphasis,
// links), without paragraph breaks or wrapping.
func renderInlineMarkdown(markdown string) string {
	return renderMarkdownAST(markdown, 0, true)
}

func renderMarkdownAST(markdown string, width int, inline bool) string {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	st := &mdState{width: width, inline: inline}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		return st.visit(n, entering, source)
	})
	if err != nil {
		return markdown
	}
	st.flushText()
	return trimTrailingBlankLines(st.out.String())
}

// mdState tracks output and inline buffers while walking the markdown AST.
type mdState struct {
	out     strings.Builder
	textBuf strings.Builder
	width   int
	inline  bool

	inLink   bool
	linkURL  string
	linkText strings.Builder

	// List rendering state; one entry per open list.
	ordered  []bool
	counters []int
	// Columns consumed by the current item prefix, reset on the next flush.
	prefixWidth int
	// Continuation indent for wrapped lines inside the current item.
	contIndent int
}

func (st *mdState) visit(n ast.Node, entering bool, source []byte) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Paragraph:
		if !entering && !st.inline {
			st.flushText()
			if len(st.ordered) == 0 {
				st.out.WriteString("\n\n")
			} else {
				st.out.WriteByte('\n')
			}
		}

	case *ast.TextBlock:
		// Tight list items carry their text in a TextBlock; terminate the
		// line so a following nested list starts on its own line.
		if !entering {
			st.flushText()
			if !strings.HasSuffix(st.out.String(), "\n") {
				st.out.WriteByte('\n')
			}
		}

	case *ast.Heading:
		if entering {
			st.textBuf.WriteString(ansiBold)
		} else {
			st.textBuf.WriteString(ansiReset)
			st.flushText()
			st.out.WriteByte('\n')
		}

	case *ast.FencedCodeBlock:
		if entering {
			st.flushText()
			st.writeCodeBlock(string(node.Language(source)), blockLines(node, source))
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			st.flushText()
			st.writeCodeBlock("", blockLines(node, source))
			return ast.WalkSkipChildren, nil
		}

	case *ast.List:
		if entering {
			start := 1
			if node.IsOrdered() {
				start = node.Start
			}
			st.ordered = append(st.ordered, node.IsOrdered())
			st.counters = append(st.counters, start)
		} else {
			st.ordered = st.ordered[:len(st.ordered)-1]
			st.counters = st.counters[:len(st.counters)-1]
			if len(st.ordered) == 0 {
				st.out.WriteByte('\n')
			}
		}

	case *ast.ListItem:
		if entering {
			st.beginListItem()
		} else {
			st.flushText()
			if !strings.HasSuffix(st.out.String(), "\n") {
				st.out.WriteByte('\n')
			}
			st.contIndent = 0
		}

	case *ast.CodeSpan:
		if entering {
			code := nodeText(node, source)
			if st.inLink {
				st.linkText.WriteString(code)
			} else {
				st.textBuf.WriteString(ansiBlue + code + ansiReset)
			}
			return ast.WalkSkipChildren, nil
		}

	case *ast.Emphasis:
		if st.inLink {
			break
		}
		if entering {
			if node.Level >= 2 {
				st.textBuf.WriteString(ansiBold)
			} else {
				st.textBuf.WriteString(ansiItalic)
			}
		} else {
			st.textBuf.WriteString(ansiReset)
		}

	case *ast.Link:
		if entering {
			st.inLink = true
			st.linkURL = string(node.Destination)
			st.linkText.Reset()
		} else {
			st.inLink = false
			fmt.Fprintf(&st.textBuf, "\x1b]8;;%s\x1b\\%s%s%s\x1b]8;;\x1b\\",
				st.linkURL, ansiUnderline, st.linkText.String(), ansiReset)
		}

	case *ast.AutoLink:
		if entering {
			st.writeText(string(node.URL(source)))
		}

	case *ast.Text:
		if entering {
			st.writeText(string(node.Segment.Value(source)))
			if node.SoftLineBreak() {
				st.writeText(" ")
			} else if node.HardLineBreak() {
				st.writeText("\n")
			}
		}

	case *ast.String:
		if entering {
			st.writeText(string(node.Value))
		}
	}
	return ast.WalkContinue, nil
}

// writeText routes inline text to the link buffer or the text buffer.
func (st *mdState) writeText(s string) {
	if st.inLink {
		st.linkText.WriteString(s)
	} else {
		st.textBuf.WriteString(s)
	}
}

// beginListItem emits the item prefix and records its width so wrapped
// continuation lines align under the item text.
func (st *mdState) beginListItem() {
	st.flushText()
	depth := 0
	ordered := false
	if n := len(st.ordered); n > 0 {
		depth = n - 1
		ordered = st.ordered[n-1]
	}
	indent := strings.Repeat("  ", depth)
	var prefix string
	if ordered {
		prefix = fmt.Sprintf("%s%d. ", indent, st.counters[len(st.counters)-1])
		st.counters[len(st.counters)-1]++
	} else {
		prefix = indent + "- "
	}
	st.prefixWidth = len(prefix)
	st.contIndent = len(prefix)
	st.out.WriteString(prefix)
}

// writeCodeBlock writes a code block with its fences and a trailing blank line.
func (st *mdState) writeCodeBlock(lang, code string) {
	st.out.WriteString("```" + lang + "\n")
	st.out.WriteString(code)
	st.out.WriteString("```\n\n")
}

// flushText moves buffered inline text to the output, word-wrapping when a
// width is set.
func (st *mdState) flushText() {
	if st.textBuf.Len() == 0 {
		return
	}
	buffered := st.textBuf.String()
	st.textBuf.Reset()
	if st.width > 0 {
		offset := st.prefixWidth
		st.prefixWidth = 0
		st.out.WriteString(wrapANSI(buffered, st.width, offset, st.contIndent))
	} else {
		st.out.WriteString(buffered)
	}
}

// blockLines concatenates the raw source lines of a code block node.
func blockLines(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// nodeText concatenates the text content of a node's direct children.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// trimTrailingBlankLines collapses trailing blank lines, keeping at most
// one trailing newline.
func trimTrailingBlankLines(s string) string {
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		return ""
	}
	if strings.HasSuffix(s, "\n") {
		return trimmed + "\n"
	}
	return trimmed
}

// wrapANSI word-wraps text to width visible columns, treating ANSI escape
// sequences as zero-width and keeping them attached to the adjacent word.
// firstLineOffset counts columns already occupied on the first line (e.g. 2
// for a "- " prefix); contIndent spaces prefix each continuation line.
// Existing newlines are preserved. width <= 0 disables wrapping.
func wrapANSI(s string, width, firstLineOffset, contIndent int) string {
	if width <= 0 {
		return s
	}

	contPrefix := strings.Repeat(" ", contIndent)
	var out strings.Builder
	var word strings.Builder
	wordWidth := 0
	col := firstLineOffset
	pendingSpace := false

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		if pendingSpace {
			if col+1+wordWidth > width {
				out.WriteByte('\n')
				out.WriteString(contPrefix)
				col = len(contPrefix)
			} else {
				out.WriteByte(' ')
				col++
			}
			pendingSpace = false
		}
		out.WriteString(word.String())
		col += wordWidth
		word.Reset()
		wordWidth = 0
	}

	runes := []rune(s)
	for i := 0; i < len(runes); {
		ch := runes[i]

		if ch == '\x1b' && i+1 < len(runes) {
			i = consumeANSIEscape(runes, i, &word)
			continue
		}
		if ch == '\n' {
			flushWord()
			out.WriteByte('\n')
			if contIndent > 0 {
				out.WriteString(contPrefix)
			}
			col = contIndent
			pendingSpace = false
			i++
			continue
		}
		if ch == ' ' {
			flushWord()
			if col > 0 {
				pendingSpace = true
			}
			i++
			continue
		}
		word.WriteRune(ch)
		wordWidth++
		i++
	}
	flushWord()
	return out.String()
}

// consumeANSIEscape appends the escape sequence starting at runes[i] (the
// ESC) to word and returns the index past it. CSI sequences run to the
// first ASCII letter, OSC sequences to ST or BEL.
func consumeANSIEscape(runes []rune, i int, word *strings.Builder) int {
	word.WriteRune(runes[i])
	i++
	next := runes[i]
	word.WriteRune(next)
	i++
	switch next {
	case '[':
		for i < len(runes) {
			word.WriteRune(runes[i])
			done := isASCIILetter(runes[i])
			i++
			if done {
				break
			}
		}
	case ']':
		for i < len(runes) {
			if runes[i] == '\x07' {
				word.WriteRune(runes[i])
				return i + 1
			}
			if runes[i] == '\x1b' && i+1 < len(runes) && runes[i+1] == '\\' {
				word.WriteRune(runes[i])
				word.WriteRune(runes[i+1])
				return i + 2
			}
			word.WriteRune(runes[i])
			i++
		}
	}
	return i
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
