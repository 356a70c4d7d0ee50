// Package schema reads JSON Schema documents and converts object schemas
// into the input descriptors rendered by action forms.
package schema

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
)

// textareaThreshold is the maxLength above which a string renders as a
// textarea instead of a single-line input.
const textareaThreshold = 255

// SchemaType handles JSON Schema type field which can be string or array of strings
type SchemaType struct {
	Types []string
}

// Primary returns the first non-null type, or empty string if none
func (st SchemaType) Primary() string {
	for _, t := range st.Types {
		if t != "null" {
			return t
		}
	}
	if len(st.Types) > 0 {
		return st.Types[0]
	}
	return ""
}

// IsNullable returns true if "null" is one of the allowed types
func (st SchemaType) IsNullable() bool {
	for _, t := range st.Types {
		if t == "null" {
			return true
		}
	}
	return false
}

// Property is a named property schema, kept in declaration order
type Property struct {
	Name   string
	Schema *Schema
}

// Schema represents the subset of a JSON Schema document that shapes a form
type Schema struct {
	Ref         string
	Title       string
	Description string

	Type SchemaType

	Properties []Property
	Required   []string
	Items      *Schema

	MaxLength *int
	Format    string

	Enum    []models.Value
	Const   models.Value
	Default models.Value

	AllOf []*Schema

	// Definitions merges "definitions" and "$defs" for $ref resolution
	Definitions map[string]*Schema
}

// ParseString parses a JSON Schema from a string
func ParseString(s string) (*Schema, error) {
	v, err := parser.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON Schema: %w", err)
	}
	return FromValue(v)
}

// FromValue builds a Schema from a parsed JSON object
func FromValue(v models.Value) (*Schema, error) {
	obj, ok := v.(*models.Object)
	if !ok {
		return nil, fmt.Errorf("schema must be an object, got %s", kindOf(v))
	}
	return fromObject(obj), nil
}

func kindOf(v models.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}

func fromObject(obj *models.Object) *Schema {
	s := &Schema{}
	s.Ref, _ = models.StringField(obj, "$ref")
	s.Title, _ = models.StringField(obj, "title")
	s.Description, _ = models.StringField(obj, "description")
	s.Format, _ = models.StringField(obj, "format")

	if t, ok := obj.Get("type"); ok {
		s.Type = schemaType(t)
	}

	if props, ok := obj.Get("properties"); ok {
		if propObj, ok := props.(*models.Object); ok {
			for _, m := range propObj.Members() {
				if sub, ok := m.Value.(*models.Object); ok {
					s.Properties = append(s.Properties, Property{Name: m.Key, Schema: fromObject(sub)})
				}
			}
		}
	}

	if req, ok := obj.Get("required"); ok {
		if arr, ok := req.(models.Array); ok {
			for _, r := range arr {
				if name, ok := r.(models.String); ok {
					s.Required = append(s.Required, string(name))
				}
			}
		}
	}

	if items, ok := obj.Get("items"); ok {
		if itemObj, ok := items.(*models.Object); ok {
			s.Items = fromObject(itemObj)
		}
	}

	if ml, ok := obj.Get("maxLength"); ok {
		if n, ok := ml.(models.Number); ok {
			length := int(n.Float())
			s.MaxLength = &length
		}
	}

	if enum, ok := obj.Get("enum"); ok {
		if arr, ok := enum.(models.Array); ok {
			s.Enum = append(s.Enum, arr...)
		}
	}
	if c, ok := obj.Get("const"); ok {
		s.Const = c
	}
	if d, ok := obj.Get("default"); ok {
		s.Default = d
	}

	if all, ok := obj.Get("allOf"); ok {
		if arr, ok := all.(models.Array); ok {
			for _, elem := range arr {
				if sub, ok := elem.(*models.Object); ok {
					s.AllOf = append(s.AllOf, fromObject(sub))
				}
			}
		}
	}

	for _, key := range []string{"definitions", "$defs"} {
		defs, ok := obj.Get(key)
		if !ok {
			continue
		}
		defObj, ok := defs.(*models.Object)
		if !ok {
			continue
		}
		for _, m := range defObj.Members() {
			if sub, ok := m.Value.(*models.Object); ok {
				if s.Definitions == nil {
					s.Definitions = make(map[string]*Schema)
				}
				s.Definitions[m.Key] = fromObject(sub)
			}
		}
	}

	return s
}

func schemaType(v models.Value) SchemaType {
	switch t := v.(type) {
	case models.String:
		return SchemaType{Types: []string{string(t)}}
	case models.Array:
		var st SchemaType
		for _, elem := range t {
			if s, ok := elem.(models.String); ok {
				st.Types = append(st.Types, string(s))
			}
		}
		return st
	}
	return SchemaType{}
}

// Converter converts an object schema into form input descriptors
type Converter struct {
	schema      *Schema
	definitions map[string]*Schema
	resolving   map[string]bool
}

// NewConverter creates a new schema converter
func NewConverter(schema *Schema) *Converter {
	return &Converter{
		schema:      schema,
		definitions: schema.Definitions,
		resolving:   make(map[string]bool),
	}
}

// Inputs returns the descriptor object for the schema's properties, in
// declaration order. Each entry is either a descriptor object (type, value,
// options, required, multiple) or a bare scalar for constant fields.
func (c *Converter) Inputs() *models.Object {
	root := c.resolve(c.schema)

	required := make(map[string]bool, len(root.Required))
	for _, r := range root.Required {
		required[r] = true
	}

	inputs := models.NewObject()
	for _, prop := range root.Properties {
		inputs.Set(prop.Name, c.descriptor(prop.Schema, required[prop.Name]))
	}
	return inputs
}

// Inputs converts a schema value straight into input descriptors
func Inputs(v models.Value) (*models.Object, error) {
	s, err := FromValue(v)
	if err != nil {
		return nil, err
	}
	return NewConverter(s).Inputs(), nil
}

func (c *Converter) descriptor(prop *Schema, required bool) models.Value {
	prop = c.resolve(prop)

	if prop.Const != nil {
		return prop.Const
	}

	desc := models.NewObject()
	switch {
	case len(prop.Enum) > 0:
		desc.Set("type", models.String("select"))
		desc.Set("options", models.Array(prop.Enum))
	case prop.Type.Primary() == "array" && prop.Items != nil && len(c.resolve(prop.Items).Enum) > 0:
		desc.Set("type", models.String("select"))
		desc.Set("options", models.Array(c.resolve(prop.Items).Enum))
		desc.Set("multiple", models.Bool(true))
	default:
		desc.Set("type", models.String(inputType(prop)))
	}

	if prop.Default != nil {
		desc.Set("value", prop.Default)
	}
	if required {
		desc.Set("required", models.Bool(true))
	}
	if prop.Title != "" {
		desc.Set("title", models.String(prop.Title))
	} else if prop.Description != "" {
		desc.Set("title", models.String(prop.Description))
	}
	return desc
}

func inputType(s *Schema) string {
	switch s.Type.Primary() {
	case "string":
		switch s.Format {
		case "email":
			return "email"
		case "uri", "url":
			return "url"
		case "date":
			return "date"
		case "date-time":
			return "datetime-local"
		case "time":
			return "time"
		case "password":
			return "password"
		case "textarea":
			return "textarea"
		}
		if s.MaxLength != nil && *s.MaxLength > textareaThreshold {
			return "textarea"
		}
		return "text"
	case "integer", "number":
		return "number"
	case "boolean":
		return "checkbox"
	default:
		return "text"
	}
}

// resolve follows $ref and merges allOf. Unresolvable or cyclic references
// fall back to an empty schema, which renders as a text field.
func (c *Converter) resolve(s *Schema) *Schema {
	if s == nil {
		return &Schema{}
	}
	if s.Ref != "" {
		if c.resolving[s.Ref] {
			return &Schema{}
		}
		target, ok := c.lookupRef(s.Ref)
		if !ok {
			return &Schema{}
		}
		c.resolving[s.Ref] = true
		defer delete(c.resolving, s.Ref)
		return c.resolve(target)
	}
	if len(s.AllOf) > 0 {
		return c.mergeAllOf(s)
	}
	return s
}

func (c *Converter) lookupRef(ref string) (*Schema, bool) {
	for _, prefix := range []string{"#/definitions/", "#/$defs/"} {
		if strings.HasPrefix(ref, prefix) {
			def, ok := c.definitions[strings.TrimPrefix(ref, prefix)]
			return def, ok
		}
	}
	// External refs are not supported
	return nil, false
}

// mergeAllOf merges the properties and required lists of every allOf
// member into the base schema
func (c *Converter) mergeAllOf(base *Schema) *Schema {
	merged := *base
	merged.AllOf = nil
	merged.Properties = append([]Property(nil), base.Properties...)
	merged.Required = append([]string(nil), base.Required...)

	seen := make(map[string]int, len(merged.Properties))
	for i, p := range merged.Properties {
		seen[p.Name] = i
	}

	for _, part := range base.AllOf {
		resolved := c.resolve(part)
		for _, p := range resolved.Properties {
			if i, ok := seen[p.Name]; ok {
				merged.Properties[i] = p
				continue
			}
			seen[p.Name] = len(merged.Properties)
			merged.Properties = append(merged.Properties, p)
		}
		merged.Required = append(merged.Required, resolved.Required...)

		if merged.Title == "" {
			merged.Title = resolved.Title
		}
		if merged.Description == "" {
			merged.Description = resolved.Description
		}
	}

	if len(merged.Type.Types) == 0 {
		merged.Type = SchemaType{Types: []string{"object"}}
	}
	return &merged
}
