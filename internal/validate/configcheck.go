package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/parser"
)

//go:embed schemalint.schema.json
var configSchemaJSON []byte

// configSchemaURL is the identity the built-in config schema compiles
// under. It is never fetched.
const configSchemaURL = "https://schemalint.dev/schemalint.schema.json"

// checkConfigFile validates schemalint.toml against the built-in
// config schema. Violations become config diagnostics, and the file
// appears in the checked report so a clean run shows it was covered.
func (s *runState) checkConfigFile(configPath string) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		s.result.Errors = append(s.result.Errors, diagnostics.NewIOError(configPath, err))
		return
	}

	value, err := parser.TOMLParser{}.Parse(content, configPath)
	if err != nil {
		s.result.Errors = append(s.result.Errors, parseDiagnostic(configPath, string(content), err))
		return
	}

	schema, err := compileConfigSchema()
	if err != nil {
		s.log.LogWarn(fmt.Sprintf("built-in config schema unusable: %v", err))
		return
	}

	for _, ve := range validateValue(schema, value) {
		span := diagnostics.FindInstancePathSpan(string(content), ve.InstancePath)
		d := diagnostics.NewConfigError(configPath, ve.InstancePath, ve.Message, span)
		d.Source = string(content)
		s.result.Errors = append(s.result.Errors, d)
	}
	s.checked(configPath, "(builtin)", "", "")
}

func compileConfigSchema() (*jsonschema.Schema, error) {
	var value any
	if err := json.Unmarshal(configSchemaJSON, &value); err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, value); err != nil {
		return nil, err
	}
	return compiler.Compile(configSchemaURL)
}
