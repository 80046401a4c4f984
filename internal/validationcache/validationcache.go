// Package validationcache caches validation verdicts keyed by content
// identity: the raw file bytes, the schema's canonical hash, and the
// format-assertion flag. Entries carry no TTL — a verdict stays valid for
// exactly as long as its key inputs are unchanged.
//
// Entries live at <dir>/<sha256-hex>.json, one verdict per file,
// individually deletable.
package validationcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schemalint/schemalint/internal/filelock"
	"github.com/schemalint/schemalint/internal/logger"
)

// keyVersion participates in every cache key. Bump it when the verdict
// format or validator behavior changes so existing entries invalidate
// themselves.
const keyVersion = "1"

// Status reports whether a verdict came from the disk cache.
type Status string

const (
	StatusHit  Status = "hit"
	StatusMiss Status = "miss"
)

// ValidationError is one structured violation inside a verdict.
type ValidationError struct {
	// InstancePath is the JSON Pointer to the failing value, e.g. "/jobs/build".
	InstancePath string `json:"instance_path"`
	Message      string `json:"message"`
	// SchemaPath is the schema location that raised the error,
	// e.g. "/properties/jobs/oneOf".
	SchemaPath string `json:"schema_path,omitempty"`
}

// Verdict is the outcome of validating one file against one schema.
type Verdict struct {
	Errors []ValidationError `json:"errors"`
}

// Pass reports whether the file validated cleanly.
func (v *Verdict) Pass() bool {
	return len(v.Errors) == 0
}

// Cache is a disk-backed verdict cache. With force set, both reads and
// writes are disabled for the run. Safe for concurrent use: the value
// under a key is a pure function of the key, so racing writers produce
// byte-identical files.
type Cache struct {
	dir   string
	force bool
	log   logger.Logger
}

// New creates a Cache rooted at dir. An empty dir disables the cache.
func New(dir string, force bool, log logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Cache{dir: dir, force: force, log: log}
}

// Dir returns the cache directory, or "" when disabled.
func (c *Cache) Dir() string {
	return c.dir
}

// EntryPath returns the disk path a key's entry would occupy.
func (c *Cache) EntryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Key computes the cache key for one validation: SHA-256 over the key
// version, the raw file content, the schema's canonical hash, and one
// flag byte. Changing any input changes the key.
func Key(content []byte, schemaHash string, validateFormats bool) string {
	h := sha256.New()
	h.Write([]byte(keyVersion))
	h.Write(content)
	h.Write([]byte(schemaHash))
	if validateFormats {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaHash hashes a schema value's canonical JSON form: compact
// encoding with object keys sorted, which encoding/json produces for
// maps. Compute once per schema group and reuse for every file in it.
func SchemaHash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		// Schema values are decoded JSON; re-encoding them cannot fail.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached verdict for key, or (nil, StatusMiss) when
// absent, unreadable, or the cache is disabled for this run.
func (c *Cache) Lookup(key string) (*Verdict, Status) {
	if c.force || c.dir == "" {
		return nil, StatusMiss
	}

	data, err := os.ReadFile(c.EntryPath(key))
	if err != nil {
		return nil, StatusMiss
	}

	var verdict Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, StatusMiss
	}
	return &verdict, StatusHit
}

// Store persists a verdict under key. Write failures are logged and
// ignored; a lost entry only costs one re-validation on a later run.
func (c *Cache) Store(key string, verdict *Verdict) {
	if c.force || c.dir == "" {
		return
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		c.log.LogWarn(fmt.Sprintf("failed to encode validation verdict: %v", err))
		return
	}
	if err := filelock.AtomicWrite(c.EntryPath(key), data); err != nil {
		c.log.LogWarn(fmt.Sprintf("failed to write validation cache entry: %v", err))
	}
}

// EnsureCacheDir returns a usable validation cache directory, creating it
// if necessary. Tries <user-cache>/schemalint/validations first, falling
// back to the temp directory when that is unwritable.
func EnsureCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(base, "schemalint", "validations")
		if os.MkdirAll(dir, 0o755) == nil {
			return dir
		}
	}
	dir := filepath.Join(os.TempDir(), "schemalint", "validations")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
