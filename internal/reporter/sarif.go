package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schemalint/schemalint/internal/diagnostics"
)

const (
	sarifVersion   = "2.1.0"
	sarifSchemaURL = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/errata01/os/schemas/sarif-schema-2.1.0.json"
	sarifInfoURL   = "https://github.com/schemalint/schemalint"
)

// SARIF writes a SARIF 2.1.0 log to stdout for code-scanning upload.
// Each distinct schema URI becomes a rule; diagnostics without a schema
// fall back to a rule per kind.
type SARIF struct {
	verboseStreamer
	out         io.Writer
	toolVersion string
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool       `json:"tool"`
	AutomationDetails sarifAutomation `json:"automationDetails"`
	Results           []sarifResult   `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string        `json:"id"`
	ShortDescription *sarifMessage `json:"shortDescription,omitempty"`
	HelpURI          string        `json:"helpUri,omitempty"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

// Report writes the complete SARIF log.
func (s *SARIF) Report(result *diagnostics.Result, elapsed time.Duration) {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "schemalint",
			Version:        s.toolVersion,
			InformationURI: sarifInfoURL,
			Rules:          []sarifRule{},
		}},
		AutomationDetails: sarifAutomation{GUID: uuid.NewString()},
		Results:           []sarifResult{},
	}

	ruleIndex := map[string]int{}
	for _, d := range result.Errors {
		id := ruleID(d)
		idx, ok := ruleIndex[id]
		if !ok {
			idx = len(run.Tool.Driver.Rules)
			ruleIndex[id] = idx
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, newRule(d, id))
		}
		run.Results = append(run.Results, newResult(d, id, idx))
	}

	log := sarifLog{Version: sarifVersion, Schema: sarifSchemaURL, Runs: []sarifRun{run}}
	encoded, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		fmt.Fprintf(s.out, "{}\n")
		return
	}
	fmt.Fprintf(s.out, "%s\n", encoded)
}

func ruleID(d *diagnostics.Diagnostic) string {
	if d.SchemaURL != "" {
		return d.SchemaURL
	}
	return string(d.Kind)
}

func newRule(d *diagnostics.Diagnostic, id string) sarifRule {
	rule := sarifRule{ID: id}
	if d.SchemaURL != "" {
		rule.ShortDescription = &sarifMessage{Text: "schema violation"}
		if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
			rule.HelpURI = id
		}
	} else {
		rule.ShortDescription = &sarifMessage{Text: annotationTitle(d)}
	}
	return rule
}

func newResult(d *diagnostics.Diagnostic, id string, idx int) sarifResult {
	line, col := diagnostics.OffsetToLineCol(d.Source, d.Span.Start)
	message := d.Message
	if d.InstancePath != "" {
		message = fmt.Sprintf("%s (at %s)", d.Message, d.InstancePath)
	}
	return sarifResult{
		RuleID:    id,
		RuleIndex: idx,
		Level:     "error",
		Message:   sarifMessage{Text: message},
		Locations: []sarifLocation{{
			PhysicalLocation: sarifPhysical{
				ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(d.Path)},
				Region:           sarifRegion{StartLine: line, StartColumn: col},
			},
		}},
	}
}
