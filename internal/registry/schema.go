package registry

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Registry file JSON Schema (embedded). The file is the only persisted
// state of this subsystem, so a load validates structure before any
// field is trusted.

//go:embed schema/registry-v1.json
var registrySchema []byte

// validateRegistryBytes checks raw registry file content against the
// embedded schema.
func validateRegistryBytes(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("registry file does not match schema: %s: %s (%d issues)",
			first.Field(), first.Description(), len(result.Errors()))
	}
	return nil
}
