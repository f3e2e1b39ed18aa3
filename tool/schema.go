package tool

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the config file, suitable for editor
// validation of tools.yaml.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "agentchat configuration"
	return json.MarshalIndent(schema, "", "  ")
}
