// Package schemas embeds the JSON Schemas that benchmark YAML files are
// validated against before a run starts.
package schemas

import _ "embed"

//go:embed spec.schema.json
var SpecSchemaJSON string

//go:embed catalog.schema.json
var CatalogSchemaJSON string
