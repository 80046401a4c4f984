package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIgnoreFile(t *testing.T) {
	t.Run("skips comments and blanks", func(t *testing.T) {
		f := parseIgnoreFile("", []byte("# comment\n\n  \nbuild\n"))
		require.Len(t, f.rules, 1)
	})

	t.Run("strips trailing spaces and carriage returns", func(t *testing.T) {
		f := parseIgnoreFile("", []byte("*.json   \r\n"))
		require.Len(t, f.rules, 1)
		assert.True(t, f.rules[0].glob.Match("a.json"))
	})

	t.Run("negation and dir-only flags", func(t *testing.T) {
		f := parseIgnoreFile("", []byte("!keep.json\nbuild/\n"))
		require.Len(t, f.rules, 2)
		assert.True(t, f.rules[0].negated)
		assert.False(t, f.rules[0].dirOnly)
		assert.True(t, f.rules[1].dirOnly)
	})

	t.Run("drops malformed patterns", func(t *testing.T) {
		f := parseIgnoreFile("", []byte("[bad\nok.json\n"))
		require.Len(t, f.rules, 1)
	})
}

func TestIgnoreStackMatching(t *testing.T) {
	t.Run("unanchored pattern matches at any depth", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("", []byte("secret.json\n"))}
		assert.True(t, stack.Ignored("secret.json", false))
		assert.True(t, stack.Ignored("deep/nested/secret.json", false))
	})

	t.Run("leading slash anchors to the gitignore directory", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("", []byte("/top.json\n"))}
		assert.True(t, stack.Ignored("top.json", false))
		assert.False(t, stack.Ignored("sub/top.json", false))
	})

	t.Run("interior slash anchors too", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("", []byte("sub/data.json\n"))}
		assert.True(t, stack.Ignored("sub/data.json", false))
		assert.False(t, stack.Ignored("other/sub/data.json", false))
	})

	t.Run("dir-only rules skip files", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("", []byte("build/\n"))}
		assert.True(t, stack.Ignored("build", true))
		assert.False(t, stack.Ignored("build", false))
	})

	t.Run("last matching rule wins", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("", []byte("*.json\n!keep.json\n"))}
		assert.True(t, stack.Ignored("drop.json", false))
		assert.False(t, stack.Ignored("keep.json", false))
	})

	t.Run("deeper gitignore overrides shallower", func(t *testing.T) {
		stack := ignoreStack{
			parseIgnoreFile("", []byte("*.json\n")),
			parseIgnoreFile("sub", []byte("!local.json\n")),
		}
		assert.True(t, stack.Ignored("sub/other.json", false))
		assert.False(t, stack.Ignored("sub/local.json", false))
	})

	t.Run("rules scope to their own directory", func(t *testing.T) {
		stack := ignoreStack{parseIgnoreFile("sub", []byte("*.json\n"))}
		assert.True(t, stack.Ignored("sub/a.json", false))
		assert.False(t, stack.Ignored("a.json", false))
	})
}
