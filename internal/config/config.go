// Package config loads and merges schemalint.toml files.
//
// Configs are discovered by walking from the checked directory toward
// the filesystem root; settings in child directories take priority over
// parents, and a config with root = true stops the walk.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/schemalint/schemalint/internal/globset"
)

// ConfigFilename is the file name searched for in each directory.
const ConfigFilename = "schemalint.toml"

// Override is a conditional settings block. Each [[override]] targets
// files by path glob, schemas by URI glob, or both; the first matching
// block with an opinion wins.
type Override struct {
	// Files holds glob patterns matched against instance file paths.
	Files []string `toml:"files"`

	// Schemas holds glob patterns matched against schema URIs, both the
	// original URI (before rewrites) and the resolved one.
	Schemas []string `toml:"schemas"`

	// ValidateFormats enables or disables format keyword validation for
	// matching files. Nil means the override has no opinion.
	ValidateFormats *bool `toml:"validate_formats"`
}

// Config represents a merged schemalint.toml.
type Config struct {
	// Root stops the upward directory walk when true.
	Root bool `toml:"root"`

	// Exclude holds glob patterns for files to skip entirely.
	Exclude []string `toml:"exclude"`

	// Schemas maps file path glob patterns to schema URLs. Mappings beat
	// catalog auto-detection but lose to inline $schema properties and
	// modeline comments.
	Schemas map[string]string `toml:"schemas"`

	// NoDefaultCatalog skips the supplementary schemalint catalog,
	// leaving SchemaStore and any custom registries.
	NoDefaultCatalog bool `toml:"no-default-catalog"`

	// Registries holds additional catalog URLs fetched alongside
	// SchemaStore. github:org/repo shorthand is allowed.
	Registries []string `toml:"registries"`

	// Rewrite maps schema URI prefixes to replacements. The longest
	// matching prefix wins. A value starting with // resolves relative to
	// the directory containing the config file.
	Rewrite map[string]string `toml:"rewrite"`

	// Overrides holds [[override]] blocks in order; child config blocks
	// come before parent blocks after merging.
	Overrides []Override `toml:"override"`

	mappingOnce sync.Once
	mapping     *globset.Map[string]
}

// Parse decodes a config document, rejecting unknown fields. Patterns in
// the schemas table are validated here so later lookups cannot fail.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	for _, pattern := range sortedKeys(cfg.Schemas) {
		if err := globset.Validate(pattern); err != nil {
			return nil, fmt.Errorf("schemas pattern %q: %w", pattern, err)
		}
	}
	return &cfg, nil
}

// FindPath returns the nearest schemalint.toml at or above startDir.
// Unlike FindAndLoad it does not read the file, so it still answers
// when the config cannot be parsed.
func FindPath(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, ConfigFilename)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindAndLoad walks from startDir toward the filesystem root collecting
// schemalint.toml files, stopping after one sets root = true. The result
// is the child-first merge of everything found, plus the directory of
// the nearest config file (the anchor for resolving //-prefixed schema
// paths). A nil config with a nil error means no config file exists.
func FindAndLoad(startDir string) (*Config, string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", err
	}

	var configs []*Config
	configDir := ""
	for {
		candidate := filepath.Join(dir, ConfigFilename)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			data, err := os.ReadFile(candidate)
			if err != nil {
				return nil, "", fmt.Errorf("failed to read %s: %w", candidate, err)
			}
			cfg, err := Parse(data)
			if err != nil {
				return nil, "", fmt.Errorf("failed to parse %s: %w", candidate, err)
			}
			if configDir == "" {
				configDir = dir
			}
			configs = append(configs, cfg)
			if cfg.Root {
				break
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(configs) == 0 {
		return nil, "", nil
	}
	merged := configs[0]
	for _, parent := range configs[1:] {
		merged.mergeParent(parent)
	}
	return merged, configDir, nil
}

// mergeParent folds a parent config into this one. Child values win:
// exclude and overrides are appended after the child's entries, schemas
// and rewrite entries are added only when the key is absent, registries
// are appended deduplicated. Root and NoDefaultCatalog are not
// inherited.
func (c *Config) mergeParent(parent *Config) {
	c.Exclude = append(c.Exclude, parent.Exclude...)
	for k, v := range parent.Schemas {
		if _, ok := c.Schemas[k]; !ok {
			if c.Schemas == nil {
				c.Schemas = make(map[string]string)
			}
			c.Schemas[k] = v
		}
	}
	for _, url := range parent.Registries {
		if !containsString(c.Registries, url) {
			c.Registries = append(c.Registries, url)
		}
	}
	for k, v := range parent.Rewrite {
		if _, ok := c.Rewrite[k]; !ok {
			if c.Rewrite == nil {
				c.Rewrite = make(map[string]string)
			}
			c.Rewrite[k] = v
		}
	}
	c.Overrides = append(c.Overrides, parent.Overrides...)
}

// FindSchemaMapping returns the schema URL mapped to a file by the
// schemas table, matching the path (leading ./ stripped) first and the
// bare filename second. Patterns are compiled once in sorted key order,
// so overlapping patterns resolve deterministically.
func (c *Config) FindSchemaMapping(path, filename string) (string, bool) {
	c.mappingOnce.Do(c.compileMapping)
	if c.mapping == nil {
		return "", false
	}
	path = strings.TrimPrefix(path, "./")
	if url, ok := c.mapping.Get(path); ok {
		return url, true
	}
	if filename != "" && filename != path {
		if url, ok := c.mapping.Get(filename); ok {
			return url, true
		}
	}
	return "", false
}

func (c *Config) compileMapping() {
	if len(c.Schemas) == 0 {
		return
	}
	builder := globset.NewMapBuilder[string]()
	for _, pattern := range sortedKeys(c.Schemas) {
		if err := builder.Add(pattern, c.Schemas[pattern]); err != nil {
			continue
		}
	}
	m, err := builder.Build()
	if err != nil {
		return
	}
	c.mapping = m
}

// ShouldValidateFormats reports whether format keyword validation
// applies to a file. Overrides are checked in order; the first one whose
// files match the path or whose schemas match any of the given URIs and
// that carries an opinion wins. Defaults to true.
func (c *Config) ShouldValidateFormats(path string, schemaURIs []string) bool {
	path = strings.TrimPrefix(path, "./")
	for i := range c.Overrides {
		ov := &c.Overrides[i]
		matched := anyPatternMatches(ov.Files, path)
		if !matched {
			for _, uri := range schemaURIs {
				if anyPatternMatches(ov.Schemas, uri) {
					matched = true
					break
				}
			}
		}
		if matched && ov.ValidateFormats != nil {
			return *ov.ValidateFormats
		}
	}
	return true
}

// ApplyRewrites replaces the longest matching prefix of uri per the
// rewrite rules. A URI matching no rule passes through unchanged.
func ApplyRewrites(uri string, rules map[string]string) string {
	bestFrom, bestTo := "", ""
	found := false
	for from, to := range rules {
		if strings.HasPrefix(uri, from) && (!found || len(from) > len(bestFrom)) {
			bestFrom, bestTo = from, to
			found = true
		}
	}
	if !found {
		return uri
	}
	return bestTo + uri[len(bestFrom):]
}

// ResolveDoubleSlash resolves a //-prefixed path relative to the
// directory holding the config file. Other URIs pass through unchanged.
func ResolveDoubleSlash(uri, configDir string) string {
	if !strings.HasPrefix(uri, "//") {
		return uri
	}
	return filepath.Join(configDir, strings.TrimPrefix(uri, "//"))
}

func anyPatternMatches(patterns []string, s string) bool {
	for _, pattern := range patterns {
		g, err := globset.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(s) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
