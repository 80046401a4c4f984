package catalog

import (
	"fmt"
	"strings"

	"github.com/schemalint/schemalint/internal/globset"
)

// globTarget is the value stored per compiled pattern: the schema URL and
// the pattern as written in the catalog, before widening.
type globTarget struct {
	url     string
	pattern string
}

// Match describes how a path was matched to a schema.
type Match struct {
	// URL is the schema URL.
	URL string
	// MatchedPattern is the fileMatch pattern that matched, as written.
	MatchedPattern string
	// FileMatch lists all patterns of the matched entry.
	FileMatch []string
	// Name is the human-readable schema name from the catalog.
	Name string
	// Description is the catalog entry description, empty when absent.
	Description string
}

// Compiled is a catalog compiled for fast filename matching. All entries'
// fileMatch patterns share one globset.Map, so lookup cost does not grow
// with the number of entries.
type Compiled struct {
	m          *globset.Map[globTarget]
	urlToEntry map[string]*Entry
}

// Compile builds a matcher over all entries' fileMatch patterns.
//
// Patterns without a `/` are widened to `**/pattern` so they match at any
// depth. Negation patterns (leading `!`) are skipped. An invalid pattern
// aborts compilation with an error naming the entry and the pattern.
func Compile(c *Catalog) (*Compiled, error) {
	builder := globset.NewMapBuilder[globTarget]()
	urlToEntry := make(map[string]*Entry, len(c.Schemas))

	for i := range c.Schemas {
		entry := &c.Schemas[i]
		if _, ok := urlToEntry[entry.URL]; !ok {
			urlToEntry[entry.URL] = entry
		}
		for _, pattern := range entry.FileMatch {
			if strings.HasPrefix(pattern, "!") {
				continue
			}
			if err := globset.Validate(pattern); err != nil {
				return nil, fmt.Errorf("catalog entry %q: invalid pattern %q: %w", entry.Name, pattern, err)
			}
			widened := pattern
			if !strings.Contains(pattern, "/") {
				widened = "**/" + pattern
			}
			if err := builder.Add(widened, globTarget{url: entry.URL, pattern: pattern}); err != nil {
				return nil, fmt.Errorf("catalog entry %q: %w", entry.Name, err)
			}
		}
	}

	m, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &Compiled{m: m, urlToEntry: urlToEntry}, nil
}

// Len returns the number of compiled patterns.
func (c *Compiled) Len() int { return c.m.Len() }

// FindSchema returns the schema URL for a file, matching the full path
// first and the bare filename second. A leading `./` is stripped.
func (c *Compiled) FindSchema(path, filename string) (string, bool) {
	t, ok := c.lookup(path, filename)
	if !ok {
		return "", false
	}
	return t.url, true
}

// FindSchemaDetailed is FindSchema plus the matched pattern and the entry
// metadata, for identify and trace output.
func (c *Compiled) FindSchemaDetailed(path, filename string) (*Match, bool) {
	t, ok := c.lookup(path, filename)
	if !ok {
		return nil, false
	}
	entry, ok := c.urlToEntry[t.url]
	if !ok {
		return nil, false
	}
	return &Match{
		URL:            t.url,
		MatchedPattern: t.pattern,
		FileMatch:      entry.FileMatch,
		Name:           entry.Name,
		Description:    entry.Description,
	}, true
}

// EntryForURL returns the catalog entry owning a schema URL. When several
// entries share a URL the first one wins.
func (c *Compiled) EntryForURL(url string) (*Entry, bool) {
	entry, ok := c.urlToEntry[url]
	return entry, ok
}

func (c *Compiled) lookup(path, filename string) (globTarget, bool) {
	path = strings.TrimPrefix(path, "./")
	if t, ok := c.m.Get(path); ok {
		return t, true
	}
	if filename != "" && filename != path {
		if t, ok := c.m.Get(filename); ok {
			return t, true
		}
	}
	return globTarget{}, false
}
