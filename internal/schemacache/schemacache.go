// Package schemacache resolves schema URIs to parsed JSON values through a
// three-layer cache: an in-memory map for the current run, a disk cache
// with TTL and ETag revalidation, and the network.
//
// Disk entries live at <dir>/<sha256(uri)>.json as a plain JSON envelope
// {"uri", "etag", "fetched_at", "value"}, so individual entries can be
// inspected or deleted by hand. Concurrent fetches of one URI share a
// single network round trip, and a global limiter bounds simultaneous
// outbound requests across all URIs.
package schemacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schemalint/schemalint/internal/filelock"
	"github.com/schemalint/schemalint/internal/logger"
)

// DefaultTTL is how long a disk entry is trusted without revalidation.
const DefaultTTL = 12 * time.Hour

const (
	defaultMaxConcurrentRequests = 20
	defaultRequestTimeout        = 30 * time.Second
)

// Status reports which layer served a schema fetch.
type Status string

const (
	// StatusHitMemory means the schema was already loaded this run.
	StatusHitMemory Status = "hit-memory"
	// StatusHitDisk means the schema came from the disk cache, fresh or
	// revalidated by a 304 response.
	StatusHitDisk Status = "hit-disk"
	// StatusMissFetched means the schema was downloaded and written to disk.
	StatusMissFetched Status = "miss-fetched"
	// StatusDisabled means the schema was downloaded with no disk cache
	// available.
	StatusDisabled Status = "disabled"
)

// Hit reports whether the fetch was served from a cache layer.
func (s Status) Hit() bool {
	return s == StatusHitMemory || s == StatusHitDisk
}

// diskEntry is the JSON envelope stored per cached schema.
type diskEntry struct {
	URI       string          `json:"uri"`
	ETag      string          `json:"etag,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Value     json.RawMessage `json:"value"`
}

// inflight is the shared result slot for one URI being fetched. Waiters
// read the fields only after done is closed.
type inflight struct {
	done   chan struct{}
	value  any
	status Status
	err    error
}

// Cache is a disk-backed schema cache with HTTP fetching. The zero value
// is not usable; construct with New or NewMemory. Safe for concurrent use.
type Cache struct {
	dir       string // "" disables the disk layer
	transport Transport
	force     bool
	ttl       time.Duration
	log       logger.Logger

	mu            sync.Mutex
	memory        map[string]any
	contentHashes map[string]string
	flights       map[string]*inflight

	requests chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithCacheDir sets the disk cache directory. An empty dir disables the
// disk layer for the run.
func WithCacheDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// WithTTL overrides the freshness window for disk entries. A non-positive
// TTL disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Cache) { c.transport = t }
}

// WithForceFetch bypasses the memory and disk layers unconditionally.
// Fetched schemas are still written back to disk.
func WithForceFetch(force bool) Option {
	return func(c *Cache) { c.force = force }
}

// WithLogger sets the logger for cache diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithMaxConcurrentRequests caps simultaneous outbound requests.
func WithMaxConcurrentRequests(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.requests = make(chan struct{}, n)
		}
	}
}

// New creates a Cache. Defaults: EnsureCacheDir for the disk layer, the
// net/http transport, DefaultTTL, and a no-op logger.
func New(opts ...Option) *Cache {
	c := &Cache{
		dir:           EnsureCacheDir(),
		transport:     NewHTTPTransport(defaultRequestTimeout),
		ttl:           DefaultTTL,
		log:           logger.NewNoOpLogger(),
		memory:        make(map[string]any),
		contentHashes: make(map[string]string),
		flights:       make(map[string]*inflight),
		requests:      make(chan struct{}, defaultMaxConcurrentRequests),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemory creates a memory-only cache with no disk layer and no
// network. Pre-populate with Insert; fetches for unknown URIs fail.
func NewMemory() *Cache {
	c := New(WithCacheDir(""))
	c.transport = nil
	return c
}

// Insert places a value directly into the memory layer.
func (c *Cache) Insert(uri string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory[uri] = value
}

// Get looks up a schema in the memory layer only.
func (c *Cache) Get(uri string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.memory[uri]
	return value, ok
}

// ContentHash returns the SHA-256 hex digest of the raw bytes last loaded
// for uri, from disk or network. Values placed with Insert have no raw
// form and report false.
func (c *Cache) ContentHash(uri string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash, ok := c.contentHashes[uri]
	return hash, ok
}

// Dir returns the disk cache directory, or "" when the disk layer is
// disabled.
func (c *Cache) Dir() string {
	return c.dir
}

// EntryPath returns the disk path a URI's cache entry would occupy.
func (c *Cache) EntryPath(uri string) string {
	return filepath.Join(c.dir, HashURI(uri)+".json")
}

// Entry is the decoded form of one disk cache file, for inspection
// tooling.
type Entry struct {
	URI       string
	ETag      string
	FetchedAt time.Time
	Value     any
}

// DecodeEntry parses the JSON envelope of a disk cache file and the
// schema value inside it.
func DecodeEntry(data []byte) (*Entry, error) {
	var e diskEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	entry := &Entry{URI: e.URI, ETag: e.ETag, FetchedAt: e.FetchedAt}
	if len(e.Value) > 0 {
		if err := json.Unmarshal(e.Value, &entry.Value); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// Fetch resolves a schema URI to its parsed JSON value, reporting which
// layer served it. Concurrent calls for the same URI coalesce into one
// network round trip.
func (c *Cache) Fetch(ctx context.Context, uri string) (any, Status, error) {
	if !c.force {
		c.mu.Lock()
		if value, ok := c.memory[uri]; ok {
			c.mu.Unlock()
			return value, StatusHitMemory, nil
		}
		c.mu.Unlock()
	}

	// Join an in-flight fetch for this URI, or claim the slot.
	c.mu.Lock()
	if fl, ok := c.flights[uri]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.value, fl.status, fl.err
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	c.flights[uri] = fl
	c.mu.Unlock()

	value, status, err := c.fetchSlow(ctx, uri)

	fl.value, fl.status, fl.err = value, status, err
	c.mu.Lock()
	delete(c.flights, uri)
	c.mu.Unlock()
	close(fl.done)

	return value, status, err
}

func (c *Cache) fetchSlow(ctx context.Context, uri string) (any, Status, error) {
	if c.transport == nil {
		return nil, StatusDisabled, fmt.Errorf("memory-only schema cache has no entry for %s", uri)
	}

	var (
		etag      string
		stale     any
		staleRaw  []byte
		haveStale bool
	)

	if c.dir != "" && !c.force {
		entry, value, usable := c.readDiskEntry(uri)
		switch {
		case entry == nil:
			// no disk entry
		case usable && c.fresh(entry):
			c.remember(uri, value, entry.Value)
			return value, StatusHitDisk, nil
		case usable:
			etag = entry.ETag
			stale = value
			staleRaw = entry.Value
			haveStale = true
		default:
			// Corrupt cached body: treat as a miss and refetch the full
			// body unconditionally.
			c.log.LogDebug(fmt.Sprintf("cached schema for %s is corrupt, refetching", uri))
		}
	}

	select {
	case c.requests <- struct{}{}:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
	defer func() { <-c.requests }()

	resp, err := c.transport.Get(ctx, uri, etag)
	if err != nil {
		if haveStale {
			c.log.LogWarn(fmt.Sprintf("fetching %s failed (%v), serving stale cached copy", uri, err))
			c.remember(uri, stale, staleRaw)
			return stale, StatusHitDisk, nil
		}
		return nil, "", fmt.Errorf("fetch %s: %w", uri, err)
	}

	if resp.StatusCode == http.StatusNotModified {
		if haveStale {
			c.remember(uri, stale, staleRaw)
			c.writeDiskEntry(uri, staleRaw, etag)
			return stale, StatusHitDisk, nil
		}
		return nil, "", fmt.Errorf("fetch %s: unexpected 304 response", uri)
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		return nil, "", fmt.Errorf("parse schema %s: %w", uri, err)
	}
	c.remember(uri, value, resp.Body)

	if c.dir == "" {
		return value, StatusDisabled, nil
	}
	c.writeDiskEntry(uri, resp.Body, resp.ETag)
	return value, StatusMissFetched, nil
}

// readDiskEntry loads the envelope for uri. entry is nil when the file is
// missing or the envelope does not parse; usable is false when the body
// itself does not parse.
func (c *Cache) readDiskEntry(uri string) (entry *diskEntry, value any, usable bool) {
	data, err := os.ReadFile(c.EntryPath(uri))
	if err != nil {
		return nil, nil, false
	}
	var e diskEntry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Value) == 0 {
		return nil, nil, false
	}
	if err := json.Unmarshal(e.Value, &value); err != nil {
		return &e, nil, false
	}
	return &e, value, true
}

func (c *Cache) fresh(entry *diskEntry) bool {
	if c.ttl <= 0 {
		return true
	}
	return time.Since(entry.FetchedAt) <= c.ttl
}

func (c *Cache) remember(uri string, value any, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory[uri] = value
	c.contentHashes[uri] = HashContent(raw)
}

// writeDiskEntry persists a schema body under its final name atomically,
// refreshing the fetch timestamp. Failures degrade to warnings; the value
// is already in memory.
func (c *Cache) writeDiskEntry(uri string, raw []byte, etag string) {
	entry := diskEntry{
		URI:       uri,
		ETag:      etag,
		FetchedAt: time.Now().UTC(),
		Value:     json.RawMessage(raw),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		c.log.LogWarn(fmt.Sprintf("failed to encode cache entry for %s: %v", uri, err))
		return
	}
	if err := filelock.LockAndWrite(c.EntryPath(uri), data); err != nil {
		c.log.LogWarn(fmt.Sprintf("failed to write cache entry for %s: %v", uri, err))
	}
}

// HashURI returns the SHA-256 hex digest of a schema URI, the on-disk
// cache key.
func HashURI(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:])
}

// HashContent returns the SHA-256 hex digest of raw content bytes.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// EnsureCacheDir returns a usable schema cache directory, creating it if
// necessary. Tries <user-cache>/schemalint/schemas first, falling back to
// the temp directory when that is unwritable.
func EnsureCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(base, "schemalint", "schemas")
		if os.MkdirAll(dir, 0o755) == nil {
			return dir
		}
	}
	dir := filepath.Join(os.TempDir(), "schemalint", "schemas")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
