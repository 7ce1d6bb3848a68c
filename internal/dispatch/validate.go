package dispatch

import (
	"fmt"

	"github.com/xk9labs/pagepilot/api/schemas"
)

// validateArgs checks the decoded arguments against a tool's declared
// schema: required fields must be present and supplied values must match
// their declared primitive type. Deep semantic validation (URL syntax,
// selector existence) stays with the tool.
func validateArgs(schema schemas.InputSchema, args map[string]any) error {
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("missing required argument %q", req)
		}
	}
	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			// Unknown arguments are tolerated; agents misspell optional
			// parameters often enough that rejecting would hurt more than
			// the typo does.
			continue
		}
		if !typeMatches(prop.Type, value) {
			return fmt.Errorf("argument %q must be of type %s", key, prop.Type)
		}
	}
	return nil
}

func typeMatches(t schemas.PropertyType, v any) bool {
	if v == nil {
		return false
	}
	switch t {
	case schemas.TypeString:
		_, ok := v.(string)
		return ok
	case schemas.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case schemas.TypeNumber:
		_, ok := v.(float64)
		return ok
	case schemas.TypeInteger:
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case schemas.TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case schemas.TypeArray:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}
