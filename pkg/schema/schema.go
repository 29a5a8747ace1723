// Package schema models the Avro-compatible record schemas that structured
// output conforms to. A Schema is immutable once built; helpers that derive a
// new schema always return a copy.
package schema

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
)

// Type is the Avro type of a schema node.
type Type string

const (
	Boolean Type = "boolean"
	Int     Type = "int"
	Long    Type = "long"
	Float   Type = "float"
	Double  Type = "double"
	String  Type = "string"
	Record  Type = "record"
	Array   Type = "array"
)

// Schema describes one value: a primitive, a record or an array.
// Nullable schemas serialize as the union [type, "null"].
type Schema struct {
	Type     Type
	Nullable bool

	// Name and Fields are set for records.
	Name   string
	Fields []Field

	// Items is set for arrays.
	Items *Schema
}

// Field is a named member of a record schema.
type Field struct {
	Name   string
	Schema *Schema
}

// Of returns a non-nullable primitive schema.
func Of(t Type) *Schema {
	return &Schema{Type: t}
}

// NullableOf returns a nullable copy of s.
func NullableOf(s *Schema) *Schema {
	c := *s
	c.Nullable = true
	return &c
}

// RecordOf returns a non-nullable record schema.
func RecordOf(name string, fields ...Field) *Schema {
	return &Schema{Type: Record, Name: name, Fields: fields}
}

// ArrayOf returns a non-nullable array schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: Array, Items: items}
}

// NewField builds a record field.
func NewField(name string, s *Schema) Field {
	return Field{Name: name, Schema: s}
}

// IsPrimitive reports whether s is neither a record nor an array.
func (s *Schema) IsPrimitive() bool {
	return s.Type != Record && s.Type != Array
}

// Field looks up a record field by exact name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns record field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// WithField returns a copy of the record schema with f appended.
func (s *Schema) WithField(f Field) *Schema {
	c := *s
	c.Fields = make([]Field, 0, len(s.Fields)+1)
	c.Fields = append(c.Fields, s.Fields...)
	c.Fields = append(c.Fields, f)
	return &c
}

// UnionName is the branch name goavro expects when a value of this schema is
// wrapped in a nullable union.
func (s *Schema) UnionName() string {
	if s.Type == Record {
		return s.Name
	}
	return string(s.Type)
}

// Codec compiles the schema with goavro.
func (s *Schema) Codec() (*goavro.Codec, error) {
	codec, err := goavro.NewCodec(s.String())
	if err != nil {
		return nil, fmt.Errorf("compile avro schema %q: %w", s.Name, err)
	}
	return codec, nil
}

// String returns the Avro JSON form of the schema.
func (s *Schema) String() string {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid schema: %v>", err)
	}
	return string(data)
}

// MarshalJSON encodes the schema as Avro JSON.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(s.avro())
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

type avroField struct {
	Name string `json:"name"`
	Type any    `json:"type"`
}

type avroArray struct {
	Type  string `json:"type"`
	Items any    `json:"items"`
}

func (s *Schema) avro() any {
	var node any
	switch s.Type {
	case Record:
		fields := make([]avroField, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = avroField{Name: f.Name, Type: f.Schema.avro()}
		}
		node = avroRecord{Type: string(Record), Name: s.Name, Fields: fields}
	case Array:
		node = avroArray{Type: string(Array), Items: s.Items.avro()}
	default:
		node = string(s.Type)
	}
	if s.Nullable {
		return []any{node, "null"}
	}
	return node
}
