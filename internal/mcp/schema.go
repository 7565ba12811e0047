package mcp

import "github.com/google/jsonschema-go/jsonschema"

// Property describes one field of a tool's input object.
type Property struct {
	Name     string
	Schema   *jsonschema.Schema
	Required bool
}

// ObjectSchema builds an object schema from props, in order.
func ObjectSchema(props ...Property) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(props)),
	}

	for _, p := range props {
		schema.Properties[p.Name] = p.Schema

		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return schema
}

// String is a string property schema.
func String(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// Boolean is a boolean property schema.
func Boolean(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

// StringArray is an array-of-strings property schema.
func StringArray(description string, enum ...string) *jsonschema.Schema {
	items := &jsonschema.Schema{Type: "string"}

	for _, e := range enum {
		items.Enum = append(items.Enum, e)
	}

	return &jsonschema.Schema{Type: "array", Description: description, Items: items}
}
