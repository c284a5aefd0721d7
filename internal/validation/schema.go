package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/wordbench/wordbench/internal/dataset"
	"github.com/wordbench/wordbench/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// specSchema is the compiled JSON Schema for benchmark spec files.
var specSchema *jsonschema.Schema

// catalogSchema is the compiled JSON Schema for model catalog files.
var catalogSchema *jsonschema.Schema

func init() {
	specSchema = mustCompileSchema(schemas.SpecSchemaJSON, "spec.schema.json")
	catalogSchema = mustCompileSchema(schemas.CatalogSchemaJSON, "catalog.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateSpecFile validates a benchmark spec file at the given path against
// the JSON schema. Returns errors for the spec itself AND the topics file it
// references, if any.
func ValidateSpecFile(specPath string) (specErrs []string, topicsErrs []string, err error) {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading spec file: %w", err)
	}

	// Validate spec schema
	specErrs = ValidateSpecBytes(data)

	// Parse into a minimal struct to resolve the topics file
	var spec struct {
		TopicsFile string `yaml:"topics_file"`
	}
	if yamlErr := yaml.Unmarshal(data, &spec); yamlErr != nil {
		return specErrs, nil, nil // can't resolve topics, but spec errors are still useful
	}
	if spec.TopicsFile == "" {
		return specErrs, nil, nil
	}

	topicsPath := spec.TopicsFile
	if !filepath.IsAbs(topicsPath) {
		topicsPath = filepath.Join(filepath.Dir(specPath), topicsPath)
	}
	if _, topicsErr := dataset.LoadTopics(topicsPath); topicsErr != nil {
		topicsErrs = []string{topicsErr.Error()}
	}

	return specErrs, topicsErrs, nil
}

// ValidateCatalogFile validates a model catalog file at the given path
// against the JSON schema.
func ValidateCatalogFile(catalogPath string) ([]string, error) {
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ValidateCatalogBytes(data), nil
}

// ValidateSpecBytes validates raw YAML bytes against the spec schema.
func ValidateSpecBytes(data []byte) []string {
	return validateYAMLBytes(specSchema, data)
}

// ValidateCatalogBytes validates raw YAML bytes against the catalog schema.
func ValidateCatalogBytes(data []byte) []string {
	return validateYAMLBytes(catalogSchema, data)
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	// Parse YAML into generic any
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	// Convert to JSON-compatible types (yaml.v3 uses map[string]any which is fine)
	jsonCompatible := convertToJSONCompatible(yamlDoc)

	return validateAgainstSchema(schema, jsonCompatible)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible types.
// yaml.v3 decodes to map[string]any which is fine, but integers need to stay as-is.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
