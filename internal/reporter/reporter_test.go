package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validationcache"
)

const sampleSource = `{"$schema": "./schema.json", "name": 123}`

func sampleResult() *diagnostics.Result {
	d := diagnostics.NewValidationError(
		"tests/data.json",
		"/name",
		"got number, want string",
		diagnostics.Span{Start: 29, Len: 6},
		"https://example.com/schema.json",
		"/properties/name/type",
	)
	d.Source = sampleSource
	return &diagnostics.Result{
		Errors: []*diagnostics.Diagnostic{d},
		Checked: []diagnostics.CheckedFile{
			{Path: "tests/data.json", Schema: "https://example.com/schema.json"},
		},
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"pretty", "text", "github", "sarif"} {
		kind, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, kind.String())
	}

	_, err := ParseKind("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reporter")
}

func TestNewDispatch(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Out: &buf, Err: &buf}
	assert.IsType(t, &Pretty{}, New(KindPretty, opts))
	assert.IsType(t, &Text{}, New(KindText, opts))
	assert.IsType(t, &Github{}, New(KindGithub, opts))
	assert.IsType(t, &SARIF{}, New(KindSARIF, opts))
}

func TestVerboseStreaming(t *testing.T) {
	var buf bytes.Buffer
	r := New(KindPretty, Options{Verbose: true, Err: &buf})
	r.FileChecked(&diagnostics.CheckedFile{
		Path:                  "a.json",
		Schema:                "s.json",
		CacheStatus:           schemacache.StatusHitDisk,
		ValidationCacheStatus: validationcache.StatusMiss,
	})
	assert.Equal(t, "  a.json (s.json) [cached] [validated]\n", buf.String())

	buf.Reset()
	quiet := New(KindPretty, Options{Err: &buf})
	quiet.FileChecked(&diagnostics.CheckedFile{Path: "a.json", Schema: "s.json"})
	assert.Empty(t, buf.String())
}

func TestPrettyReport(t *testing.T) {
	var buf bytes.Buffer
	r := New(KindPretty, Options{Err: &buf})
	r.Report(sampleResult(), 5*time.Millisecond)

	want := "tests/data.json:1:30: error: got number, want string\n" +
		"    " + sampleSource + "\n" +
		"    " + strings.Repeat(" ", 29) + "^^^^^^ /name in /properties/name/type\n" +
		"Checked 1 files in 5ms.\n"
	assert.Equal(t, want, buf.String())
}

func TestPrettyWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	r := New(KindPretty, Options{Err: &buf})
	result := &diagnostics.Result{
		Errors: []*diagnostics.Diagnostic{
			diagnostics.NewIOError("missing.json", assert.AnError),
		},
	}
	r.Report(result, time.Millisecond)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2) // headline plus summary, no context block
	assert.True(t, strings.HasPrefix(lines[0], "missing.json:1:1: error: "), "got %q", lines[0])
	assert.Equal(t, "Checked 0 files in 1ms.", lines[1])
}

func TestTextReport(t *testing.T) {
	var buf bytes.Buffer
	r := New(KindText, Options{Err: &buf})
	r.Report(sampleResult(), 5*time.Millisecond)

	want := "error: tests/data.json:1:30: got number, want string (at /name)\n" +
		"Checked 1 files in 5ms. 1 error found.\n"
	assert.Equal(t, want, buf.String())
}

func TestTextReportClean(t *testing.T) {
	var buf bytes.Buffer
	r := New(KindText, Options{Err: &buf})
	r.Report(&diagnostics.Result{Checked: make([]diagnostics.CheckedFile, 3)}, 12*time.Millisecond)
	assert.Equal(t, "Checked 3 files in 12ms. No errors.\n", buf.String())
}

func TestGithubReport(t *testing.T) {
	var out, errOut bytes.Buffer
	r := New(KindGithub, Options{Out: &out, Err: &errOut})
	r.Report(sampleResult(), 5*time.Millisecond)

	assert.Equal(t,
		"::error file=tests/data.json,line=1,col=30,title=/name::got number, want string\n",
		out.String())
	assert.Equal(t, "Checked 1 files in 5ms. 1 error found.\n", errOut.String())
}

func TestGithubEscaping(t *testing.T) {
	var out, errOut bytes.Buffer
	r := New(KindGithub, Options{Out: &out, Err: &errOut})

	d := diagnostics.NewParseError(`dir\data.json`, "50% bad\nsecond line", diagnostics.Span{})
	r.Report(&diagnostics.Result{Errors: []*diagnostics.Diagnostic{d}}, time.Millisecond)

	assert.Equal(t,
		"::error file=dir/data.json,line=1,col=1,title=parse error::50%25 bad%0Asecond line\n",
		out.String())
}

func TestSARIFReport(t *testing.T) {
	var out bytes.Buffer
	r := New(KindSARIF, Options{Out: &out, ToolVersion: "1.2.3"})

	second := diagnostics.NewValidationError(
		"tests/other.json", "", "missing required property",
		diagnostics.Span{}, "https://example.com/schema.json", "/required",
	)
	parseErr := diagnostics.NewParseError("broken.json", "unexpected end of input", diagnostics.Span{})
	result := sampleResult()
	result.Errors = append(result.Errors, second, parseErr)

	r.Report(result, 5*time.Millisecond)

	var log sarifLog
	require.NoError(t, json.Unmarshal(out.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]

	_, err := uuid.Parse(run.AutomationDetails.GUID)
	assert.NoError(t, err)
	assert.Equal(t, "schemalint", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)

	// Two diagnostics share a schema, so three errors make two rules.
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "https://example.com/schema.json", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "https://example.com/schema.json", run.Tool.Driver.Rules[0].HelpURI)
	assert.Equal(t, "parse", run.Tool.Driver.Rules[1].ID)

	require.Len(t, run.Results, 3)
	assert.Equal(t, 0, run.Results[0].RuleIndex)
	assert.Equal(t, 0, run.Results[1].RuleIndex)
	assert.Equal(t, 1, run.Results[2].RuleIndex)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Contains(t, run.Results[0].Message.Text, "(at /name)")

	loc := run.Results[0].Locations[0].PhysicalLocation
	assert.Equal(t, "tests/data.json", loc.ArtifactLocation.URI)
	assert.Equal(t, 1, loc.Region.StartLine)
	assert.Equal(t, 30, loc.Region.StartColumn)
}

func TestCaretLine(t *testing.T) {
	assert.Equal(t, "^", caretLine("abc", 1, 0))
	assert.Equal(t, " ^^", caretLine("abc", 2, 10)) // clamped to the line end
	assert.Equal(t, "  ^^^", caretLine("abcdef", 3, 3))
}

func TestContextWindow(t *testing.T) {
	short := "short line"
	text, col := contextWindow(short, 3)
	assert.Equal(t, short, text)
	assert.Equal(t, 3, col)

	long := strings.Repeat("x", 500)
	text, col = contextWindow(long, 300)
	assert.LessOrEqual(t, len([]rune(text)), maxContextWidth+2)
	assert.True(t, strings.HasPrefix(text, "…"))
	assert.True(t, strings.HasSuffix(text, "…"))
	assert.Greater(t, col, 0)
	assert.LessOrEqual(t, col, len([]rune(text)))
}
