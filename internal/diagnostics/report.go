package diagnostics

import (
	"fmt"
	"time"

	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validationcache"
)

// CheckedFile records one processed file and the schema it resolved to.
type CheckedFile struct {
	Path   string
	Schema string
	// CacheStatus is empty for local schemas and inline schema values.
	CacheStatus schemacache.Status
	// ValidationCacheStatus is empty when verdict caching was not
	// applicable.
	ValidationCacheStatus validationcache.Status
}

// Result is the outcome of a check run.
type Result struct {
	Errors  []*Diagnostic
	Checked []CheckedFile
}

// HasErrors reports whether any file failed.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// FilesChecked returns the number of files processed.
func (r *Result) FilesChecked() int {
	return len(r.Checked)
}

// Reporter formats and emits check results.
type Reporter interface {
	// FileChecked streams per-file progress as each file completes.
	FileChecked(file *CheckedFile)
	// Report renders the full result once the run finishes.
	Report(result *Result, elapsed time.Duration)
}

// FormatCheckedVerbose renders the verbose per-file line, tagging where
// the schema and the verdict came from.
func FormatCheckedVerbose(file *CheckedFile) string {
	var schemaTag string
	switch {
	case file.CacheStatus == "":
	case file.CacheStatus.Hit():
		schemaTag = " [cached]"
	default:
		schemaTag = " [fetched]"
	}

	var validationTag string
	switch file.ValidationCacheStatus {
	case validationcache.StatusHit:
		validationTag = " [validated:cached]"
	case validationcache.StatusMiss:
		validationTag = " [validated]"
	}

	return fmt.Sprintf("  %s (%s)%s%s", file.Path, file.Schema, schemaTag, validationTag)
}
