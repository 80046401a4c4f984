package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schemalint/schemalint/internal/schemacache"
)

// PublicCatalogURL is the SchemaStore catalog, consulted after every
// other registry.
const PublicCatalogURL = "https://www.schemastore.org/api/json/catalog.json"

// SupplementaryCatalogURL covers tools missing from the public catalog.
// Skipped when the config sets no-default-catalog or --no-catalog is
// passed.
const SupplementaryCatalogURL = "https://catalog.schemalint.dev/catalog.json"

// ResolveRegistryURLs expands registry shorthand into one or more URLs to
// try in order.
//
// Supported shorthands:
//   - github:org/repo        tries the main branch, then master
//   - github:org/repo/branch uses the given branch
//
// Plain http:// and https:// URLs pass through unchanged.
func ResolveRegistryURLs(url string) []string {
	if !strings.HasPrefix(url, "github:") {
		return []string{url}
	}
	rest := strings.TrimPrefix(url, "github:")
	if parts := strings.SplitN(rest, "/", 3); len(parts) == 3 {
		return []string{fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/catalog.json", parts[0], parts[1], parts[2])}
	}
	return []string{
		fmt.Sprintf("https://raw.githubusercontent.com/%s/main/catalog.json", rest),
		fmt.Sprintf("https://raw.githubusercontent.com/%s/master/catalog.json", rest),
	}
}

// FetchCatalog fetches and decodes a registry catalog through the schema
// cache, trying each resolved URL until one works. A fetch failure moves
// on to the next URL; a decode failure stops immediately.
func FetchCatalog(ctx context.Context, cache *schemacache.Cache, url string) (*Catalog, error) {
	var lastErr error
	for _, resolved := range ResolveRegistryURLs(url) {
		value, _, err := cache.Fetch(ctx, resolved)
		if err != nil {
			lastErr = err
			continue
		}
		c, err := FromValue(value)
		if err != nil {
			return nil, fmt.Errorf("registry %s: %w", resolved, err)
		}
		return c, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no registry URLs to try")
	}
	return nil, lastErr
}
