package tool

import (
	"context"
	"slices"
)

// Parameter types accepted in a Descriptor.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Descriptor is the static registration data advertised to the model.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// Param declares one named argument of a tool.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Handler executes one tool call. It receives the arguments exactly as the
// model sent them and returns a JSON-serializable result.
type Handler func(ctx context.Context, args Args) (any, error)

// Schema renders the descriptor's parameters as a JSON-schema object.
func (d Descriptor) Schema() map[string]any {
	props := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       TypeObject,
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// RequiredParams returns the names of the required parameters in declaration order.
func (d Descriptor) RequiredParams() []string {
	var out []string
	for _, p := range d.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

func (d Descriptor) clone() Descriptor {
	d.Params = slices.Clone(d.Params)
	return d
}
