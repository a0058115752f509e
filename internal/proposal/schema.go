package proposal

import (
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// Schema returns the JSON schema of Proposal, inlined and closed, suitable
// for a structured-output request.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		schema = r.Reflect(&Proposal{})
		schema.Version = ""
		schema.ID = ""
	})
	return schema
}
