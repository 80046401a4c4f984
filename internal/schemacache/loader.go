package schemacache

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// URLLoader adapts the cache to the jsonschema compiler's resource
// loader, so remote $ref targets resolve through the same memory, disk
// and network layers as top-level schemas. file:// refs bypass the cache
// and read straight from disk.
func (c *Cache) URLLoader(ctx context.Context) jsonschema.URLLoader {
	remote := &cacheLoader{cache: c, ctx: ctx}
	return jsonschema.SchemeURLLoader{
		"file":  jsonschema.FileLoader{},
		"http":  remote,
		"https": remote,
	}
}

type cacheLoader struct {
	cache *Cache
	ctx   context.Context
}

func (l *cacheLoader) Load(url string) (any, error) {
	value, _, err := l.cache.Fetch(l.ctx, url)
	return value, err
}
