// Copyright 2026 Manifold Works
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package capability

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// TypeTag is the schema primitive a parameter value must coerce to.
type TypeTag string

const (
	TypeInteger TypeTag = "integer"
	TypeNumber  TypeTag = "number"
	TypeString  TypeTag = "string"
	TypeBoolean TypeTag = "boolean"
	TypeObject  TypeTag = "object"
	TypeArray   TypeTag = "array"
)

func validTypeTag(t TypeTag) bool {
	switch t {
	case TypeInteger, TypeNumber, TypeString, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Parameter describes one handler argument: its wire name, type tag,
// whether it must be present, and its default when absent. A parameter is
// required iff it has no default.
type Parameter struct {
	Name        string
	Type        TypeTag
	Description string
	Required    bool
	Default     interface{} // nil when Required
}

// WithDefault returns a copy of the parameter carrying a default value,
// which makes it optional.
func (p Parameter) WithDefault(v interface{}) Parameter {
	p.Default = v
	p.Required = false
	return p
}

// WithDescription returns a copy of the parameter with a description.
func (p Parameter) WithDescription(desc string) Parameter {
	p.Description = desc
	return p
}

// String declares a required string parameter.
func String(name string) Parameter { return Parameter{Name: name, Type: TypeString, Required: true} }

// Int declares a required integer parameter.
func Int(name string) Parameter { return Parameter{Name: name, Type: TypeInteger, Required: true} }

// Number declares a required floating-point parameter.
func Number(name string) Parameter { return Parameter{Name: name, Type: TypeNumber, Required: true} }

// Bool declares a required boolean parameter.
func Bool(name string) Parameter { return Parameter{Name: name, Type: TypeBoolean, Required: true} }

// Object declares a required object (mapping) parameter.
func Object(name string) Parameter { return Parameter{Name: name, Type: TypeObject, Required: true} }

// Array declares a required array parameter.
func Array(name string) Parameter { return Parameter{Name: name, Type: TypeArray, Required: true} }

// ParameterSchema is an ordered list of parameter descriptors. Once a
// capability is registered its schema is never mutated.
type ParameterSchema struct {
	params []Parameter
}

// NewSchema builds a schema from explicit parameter descriptors. This is
// the author-supplied override path; it fails with SchemaInferenceError on
// duplicate names, empty names, or unknown type tags.
func NewSchema(params ...Parameter) (*ParameterSchema, error) {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, &SchemaInferenceError{Reason: "parameter with empty name"}
		}
		if !validTypeTag(p.Type) {
			return nil, &SchemaInferenceError{Reason: fmt.Sprintf("parameter %q has unknown type tag %q", p.Name, p.Type)}
		}
		if seen[p.Name] {
			return nil, &SchemaInferenceError{Reason: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		seen[p.Name] = true
	}
	return &ParameterSchema{params: params}, nil
}

// MustSchema is NewSchema for statically-known descriptor lists; it panics
// on a malformed schema. Intended for registration-time use.
func MustSchema(params ...Parameter) *ParameterSchema {
	s, err := NewSchema(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// EmptySchema returns a schema with no parameters.
func EmptySchema() *ParameterSchema { return &ParameterSchema{} }

// SchemaFromMap builds a schema from a raw override document of the form
//
//	{"<param>": {"type": "integer", "description": "...", "default": 0}, ...}
//
// It fails with SchemaInferenceError when the document is not a mapping of
// parameter descriptors, names an unknown type tag, or does not compile as
// a JSON Schema properties object. Descriptor iteration order is not
// defined by the map; entries are appended in lexicographic name order so
// repeated loads produce identical schemas.
func SchemaFromMap(raw map[string]interface{}) (*ParameterSchema, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]Parameter, 0, len(raw))
	for _, name := range names {
		desc, ok := raw[name].(map[string]interface{})
		if !ok {
			return nil, &SchemaInferenceError{Reason: fmt.Sprintf("descriptor for %q is not a mapping", name)}
		}
		tag := TypeObject
		if t, ok := desc["type"]; ok {
			ts, ok := t.(string)
			if !ok || !validTypeTag(TypeTag(ts)) {
				return nil, &SchemaInferenceError{Reason: fmt.Sprintf("parameter %q has unknown type tag %v", name, t)}
			}
			tag = TypeTag(ts)
		}
		p := Parameter{Name: name, Type: tag, Required: true}
		if d, ok := desc["description"].(string); ok {
			p.Description = d
		}
		if dv, ok := desc["default"]; ok {
			p = p.WithDefault(dv)
		}
		params = append(params, p)
	}

	schema, err := NewSchema(params...)
	if err != nil {
		return nil, err
	}

	// The rendered JSON Schema document must compile; a descriptor set that
	// cannot be loaded as a schema is structurally invalid.
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema.JSONSchema())); err != nil {
		return nil, &SchemaInferenceError{Reason: fmt.Sprintf("schema does not compile: %v", err)}
	}
	return schema, nil
}

// Parameters returns the ordered parameter descriptors.
func (s *ParameterSchema) Parameters() []Parameter {
	if s == nil {
		return nil
	}
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Len returns the number of declared parameters.
func (s *ParameterSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// JSONSchema renders the schema as a JSON Schema object document, the form
// MCP clients expect in a tool's inputSchema.
func (s *ParameterSchema) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string
	if s != nil {
		for _, p := range s.params {
			prop := map[string]interface{}{"type": string(p.Type)}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if !p.Required && p.Default != nil {
				prop["default"] = p.Default
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
	}
	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}
