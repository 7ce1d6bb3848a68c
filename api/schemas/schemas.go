// Package schemas holds the static tool-schema catalog shared between the
// dispatcher (argument validation) and the transport layer (capability
// discovery). Schemas are JSON-schema shaped but deliberately shallow: the
// dispatcher checks required fields and primitive types only, deep semantic
// validation belongs to the tool.
package schemas

// PropertyType is the JSON-schema primitive type of a single argument.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
	TypeObject  PropertyType = "object"
	TypeArray   PropertyType = "array"
)

// Property describes one accepted argument.
type Property struct {
	Type        PropertyType `json:"type"`
	Description string       `json:"description,omitempty"`
	Default     any          `json:"default,omitempty"`
	Enum        []string     `json:"enum,omitempty"`
}

// InputSchema is the JSON-schema-shaped description of a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// ToolSchema is the discoverable description of one tool.
type ToolSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Object is a convenience constructor for the common object-rooted schema.
func Object(props map[string]Property, required ...string) InputSchema {
	return InputSchema{Type: "object", Properties: props, Required: required}
}

// Common argument properties reused across several tools. Every tool accepts
// an optional timeout override; session-bound tools additionally accept the
// session settings overrides understood by the dispatcher.
var (
	TimeoutProp = Property{
		Type:        TypeInteger,
		Description: "Per-call timeout in milliseconds, overriding the process default.",
	}
	SelectorProp = Property{
		Type:        TypeString,
		Description: "CSS selector identifying the target element.",
	}
	HeadlessProp = Property{
		Type:        TypeBoolean,
		Description: "Launch the browser session headless. Changing this relaunches the session.",
	}
)
