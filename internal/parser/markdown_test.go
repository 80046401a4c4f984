package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownYAMLFrontmatter(t *testing.T) {
	content := "---\nname: test\ndescription: hello\n---\n# Body\n"
	v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "test", "description": "hello"}, v)
}

func TestMarkdownTOMLFrontmatter(t *testing.T) {
	content := "+++\nname = \"test\"\n+++\n# Body\n"
	v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "test"}, v)
}

func TestMarkdownNoFrontmatterIsNil(t *testing.T) {
	v, err := (MarkdownParser{}).Parse([]byte("# Just a heading\nSome text\n"), "test.md")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMarkdownCRLFFrontmatter(t *testing.T) {
	content := "---\r\nname: test\r\n---\r\n# Body\r\n"
	v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "test"}, v)
}

func TestMarkdownFrontmatterAfterHTMLComments(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		content := "<!-- $schema: https://example.com/s.json -->\n---\nname: test\n---\n# Body\n"
		v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "test"}, v)
	})

	t.Run("toml", func(t *testing.T) {
		content := "<!-- $schema: https://example.com/s.json -->\n+++\nname = \"test\"\n+++\n# Body\n"
		v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "test"}, v)
	})

	t.Run("multiple comments", func(t *testing.T) {
		content := "<!-- comment 1 -->\n<!-- comment 2 -->\n---\nname: test\n---\n"
		v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "test"}, v)
	})
}

func TestMarkdownComplexFrontmatterValues(t *testing.T) {
	content := "---\nname: my-skill\nallowed-tools:\n  - Bash\n  - Read\n---\n# Body\n"
	v, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":          "my-skill",
		"allowed-tools": []any{"Bash", "Read"},
	}, v)
}

func TestMarkdownYAMLFrontmatterParseError(t *testing.T) {
	content := "---\nname: [unclosed\n---\n"
	_, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "YAML frontmatter: ")
}

func TestMarkdownTOMLFrontmatterParseError(t *testing.T) {
	content := "+++\nbroken =\n+++\n"
	_, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "TOML frontmatter: ")
}

func TestMarkdownFrontmatterErrorOffsetInsideDocument(t *testing.T) {
	content := "---\nok: 1\nbad: [\n---\n"
	_, err := (MarkdownParser{}).Parse([]byte(content), "test.md")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.GreaterOrEqual(t, perr.Offset, 4)
}

func TestMarkdownExtractSchemaFromFrontmatterValue(t *testing.T) {
	value := map[string]any{"$schema": "https://example.com/s.json", "name": "test"}
	uri, ok := (MarkdownParser{}).ExtractSchemaURI([]byte("---\n$schema: x\n---\n"), value)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/s.json", uri)
}

func TestMarkdownExtractSchemaFromHTMLComment(t *testing.T) {
	content := "<!-- $schema: https://example.com/s.json -->\n---\nname: test\n---\n"
	uri, ok := (MarkdownParser{}).ExtractSchemaURI([]byte(content), map[string]any{"name": "test"})
	require.True(t, ok)
	assert.Equal(t, "https://example.com/s.json", uri)
}

func TestMarkdownSchemaCommentAfterFrontmatterIgnored(t *testing.T) {
	content := "---\nname: test\n---\n<!-- $schema: https://example.com/s.json -->\n"
	_, ok := (MarkdownParser{}).ExtractSchemaURI([]byte(content), map[string]any{"name": "test"})
	assert.False(t, ok)
}
