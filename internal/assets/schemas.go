/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package assets

import "embed"

//go:embed embedded_schemas
var schemaFS embed.FS

// Schema names mapped to their embedded paths.
const (
	PlanSchemaName = "plan-v1.0.0"
	planSchemaPath = "embedded_schemas/schemas/plan/v1.0.0/plan.json"
)

// GetSchema returns the embedded schema bytes by name.
func GetSchema(name string) ([]byte, bool) {
	path, ok := schemaPaths[name]
	if !ok {
		return nil, false
	}
	data, err := schemaFS.ReadFile(path)
	return data, err == nil
}

var schemaPaths = map[string]string{
	PlanSchemaName: planSchemaPath,
}
