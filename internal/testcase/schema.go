package testcase

import "github.com/invopop/jsonschema"

// Schema describes the structured (yaml/json) test-case format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
	}
	s := r.Reflect(&TestCase{})
	s.Title = "Test case"
	s.Description = "A prompt dispatched to every model in an evaluation run."
	return s
}
