// Package catalog models SchemaStore-format schema catalogs and compiles
// their fileMatch patterns into a single fast path matcher.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Catalog is a schema catalog following the SchemaStore catalog format.
// See https://json.schemastore.org/schema-catalog.json.
type Catalog struct {
	Version int     `json:"version"`
	Title   string  `json:"title,omitempty"`
	Schemas []Entry `json:"schemas"`
	Groups  []Group `json:"groups,omitempty"`
}

// Entry is a single schema entry in the catalog.
type Entry struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	FileMatch   []string          `json:"fileMatch,omitempty"`
	Versions    map[string]string `json:"versions,omitempty"`
}

// Group names a set of related schemas. Consumers that do not understand
// groups ignore the field.
type Group struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Schemas     []string `json:"schemas"`
}

// Parse decodes a catalog from raw JSON.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// FromValue decodes a catalog from an already-decoded JSON value, as
// returned by the schema cache.
func FromValue(value any) (*Catalog, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return Parse(data)
}
