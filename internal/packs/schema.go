// ABOUTME: Typed argument schema descriptors for tools
// ABOUTME: Renders JSON Schema for tools/list and validates raw arguments before handlers run

package packs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Type is a JSON value type.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Field describes one argument or nested value.
type Field struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	// Nullable allows an explicit JSON null, meaning "clear this value".
	Nullable bool
	Enum     []string
	// Items describes array elements.
	Items *Field
	// Properties describes object members, in display order.
	Properties []Field
	// OneOf lists alternative shapes; a value must match at least one.
	OneOf []Field
}

// Schema is the argument contract of a tool: a closed object of fields.
type Schema struct {
	Fields []Field
}

// Object builds a schema from fields.
func Object(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// MarshalJSON renders the schema as a JSON Schema object.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return json.Marshal(objectSchema(nil))
	}
	return json.Marshal(objectSchema(s.Fields))
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := []string{}
	for _, f := range fields {
		props[f.Name] = f.jsonSchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func (f Field) jsonSchema() map[string]any {
	var out map[string]any
	if len(f.OneOf) > 0 {
		variants := make([]any, 0, len(f.OneOf))
		for _, v := range f.OneOf {
			variants = append(variants, v.jsonSchema())
		}
		out = map[string]any{"anyOf": variants}
	} else {
		switch f.Type {
		case TypeObject:
			out = objectSchema(f.Properties)
		case TypeArray:
			out = map[string]any{"type": string(TypeArray)}
			if f.Items != nil {
				out["items"] = f.Items.jsonSchema()
			}
		default:
			out = map[string]any{"type": string(f.Type)}
		}
		if f.Nullable {
			out["type"] = []string{string(f.Type), "null"}
		}
	}
	if len(f.Enum) > 0 {
		enum := make([]any, 0, len(f.Enum)+1)
		for _, e := range f.Enum {
			enum = append(enum, e)
		}
		if f.Nullable {
			enum = append(enum, nil)
		}
		out["enum"] = enum
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	return out
}

// Validate checks raw arguments against the schema. An empty body or JSON
// null is treated as an empty object. Failures are validation ToolErrors.
func (s *Schema) Validate(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Invalid("arguments are not valid JSON: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Invalid("arguments must be an object, got %s", jsonTypeName(v))
	}

	var fields []Field
	if s != nil {
		fields = s.Fields
	}
	if msg := validateObject("", fields, obj); msg != "" {
		return Invalid("%s", msg)
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// validateObject returns an empty string when obj satisfies fields.
func validateObject(path string, fields []Field, obj map[string]any) string {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}
	var unknown []string
	for k := range obj {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Sprintf("%s: unknown field", join(path, unknown[0]))
	}

	for i := range fields {
		f := &fields[i]
		v, present := obj[f.Name]
		if !present {
			if f.Required {
				return fmt.Sprintf("%s: required", join(path, f.Name))
			}
			continue
		}
		if msg := validateValue(join(path, f.Name), f, v); msg != "" {
			return msg
		}
	}
	return ""
}

func validateValue(path string, f *Field, v any) string {
	if v == nil {
		if f.Nullable {
			return ""
		}
		return fmt.Sprintf("%s: must not be null", path)
	}

	if len(f.OneOf) > 0 {
		for i := range f.OneOf {
			if validateValue(path, &f.OneOf[i], v) == "" {
				return ""
			}
		}
		return fmt.Sprintf("%s: does not match any accepted shape", path)
	}

	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(path, f.Type, v)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return fmt.Sprintf("%s: must be one of %s", path, strings.Join(f.Enum, ", "))
		}
	case TypeNumber, TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return typeMismatch(path, f.Type, v)
		}
		x, err := n.Float64()
		if err != nil || math.IsInf(x, 0) || math.IsNaN(x) {
			return fmt.Sprintf("%s: number out of range", path)
		}
		if f.Type == TypeInteger && x != math.Trunc(x) {
			return fmt.Sprintf("%s: must be an integer", path)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeMismatch(path, f.Type, v)
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return typeMismatch(path, f.Type, v)
		}
		if f.Items != nil {
			for i, elem := range arr {
				if msg := validateValue(fmt.Sprintf("%s[%d]", path, i), f.Items, elem); msg != "" {
					return msg
				}
			}
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeMismatch(path, f.Type, v)
		}
		return validateObject(path, f.Properties, obj)
	}
	return ""
}

func typeMismatch(path string, want Type, v any) string {
	return fmt.Sprintf("%s: expected %s, got %s", path, want, jsonTypeName(v))
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Nullable is an argument that distinguishes omitted (Set false), explicit
// null (Set and Null) and a value.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON is only invoked when the key is present, including for null.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Null = true
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// Ptr returns nil for null or omitted, otherwise a pointer to the value.
func (n Nullable[T]) Ptr() *T {
	if !n.Set || n.Null {
		return nil
	}
	v := n.Value
	return &v
}
