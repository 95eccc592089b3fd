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
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// InferSchema derives a ParameterSchema from a handler's argument struct
// type. Pass either a zero value or a pointer to one:
//
//	type addArgs struct {
//		A int `json:"a" description:"first addend"`
//		B int `json:"b" default:"0"`
//	}
//	schema := capability.InferSchema(addArgs{})
//
// Field names come from the json tag (falling back to the lower-cased Go
// name), type tags from the field's kind, defaults from the `default` tag.
// A field is required iff it carries no default. Inference is deliberately
// permissive: kinds with no schema primitive map to object, and a
// non-struct prototype yields an empty schema. It never fails.
func InferSchema(prototype interface{}) *ParameterSchema {
	if prototype == nil {
		return EmptySchema()
	}
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return EmptySchema()
	}

	var params []Parameter
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(field)
		if name == "" {
			continue
		}
		tag := typeTagForKind(field.Type)
		p := Parameter{
			Name:        name,
			Type:        tag,
			Description: field.Tag.Get("description"),
			Required:    true,
		}
		if raw, ok := field.Tag.Lookup("default"); ok {
			p = p.WithDefault(coerceDefault(raw, tag))
		}
		params = append(params, p)
	}
	return &ParameterSchema{params: params}
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if tag != "" {
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" {
			return tag
		}
	}
	return strings.ToLower(field.Name)
}

// typeTagForKind maps a Go type to a schema primitive. Anything without a
// clean mapping (interfaces, channels, funcs) degrades to object so that
// validation stays permissive rather than rejecting unanticipated shapes.
func typeTagForKind(t reflect.Type) TypeTag {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	default:
		return TypeObject
	}
}

// coerceDefault parses a `default` struct tag into the parameter's type.
// An unparseable tag keeps the raw string, which validation will then
// report against the declared type at call time.
func coerceDefault(raw string, tag TypeTag) interface{} {
	switch tag {
	case TypeInteger:
		if v, err := cast.ToInt64E(raw); err == nil {
			return v
		}
	case TypeNumber:
		if v, err := cast.ToFloat64E(raw); err == nil {
			return v
		}
	case TypeBoolean:
		if v, err := cast.ToBoolE(raw); err == nil {
			return v
		}
	}
	return raw
}
