// Package mapper converts raw Zendesk records into structured records that
// conform exactly to an object type's schema.
//
// Declared fields are looked up case-sensitively. A missing field is null when
// the schema allows it and an error otherwise; fields the schema does not
// declare are dropped. Primitive conversion is exact: a JSON string never
// becomes a number and a fraction never becomes an integer. Nested objects and
// arrays the schema does not model, declared as string, are kept as their
// JSON text.
package mapper

import (
	"fmt"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// DefaultTableNameField is the field injected in multi-object mode.
const DefaultTableNameField = "tablename"

// Record is one structured record.
type Record struct {
	// Object is the catalog name of the record's object type.
	Object string

	// Table is the normalized object name, e.g. "ticket_metrics".
	Table string

	// Values holds one entry per output schema field. Null is nil. Nested
	// records are map[string]any and arrays []any.
	Values map[string]any
}

// Get returns the value of field name.
func (r Record) Get(name string) any {
	return r.Values[name]
}

// Mapper maps the raw records of one object type. It is immutable and safe for
// concurrent use.
type Mapper struct {
	object     string
	table      string
	source     *schema.Schema
	out        *schema.Schema
	tableField string
}

// New creates a mapper for object records of schema s. A non-empty tableField
// selects multi-object mode: every record gets tableField set to the object's
// table key, and s must not already declare it.
func New(object string, s *schema.Schema, tableField string) (*Mapper, error) {
	if s == nil || s.Type != schema.Record {
		return nil, fmt.Errorf("mapper for %q: schema must be a record", object)
	}

	m := &Mapper{
		object:     object,
		table:      catalog.TableKey(object),
		source:     s,
		out:        s,
		tableField: tableField,
	}
	if tableField != "" {
		if _, exists := s.Field(tableField); exists {
			return nil, fmt.Errorf("%w: %q in %s", ErrTableNameCollision, tableField, object)
		}
		m.out = s.WithField(schema.NewField(tableField, schema.Of(schema.String)))
	}
	return m, nil
}

// ForDescriptor creates a mapper for a catalog object type using its default
// schema.
func ForDescriptor(d catalog.Descriptor, tableField string) (*Mapper, error) {
	return New(d.Name, d.Schema, tableField)
}

// Schema returns the output schema, including the table-name field in
// multi-object mode.
func (m *Mapper) Schema() *schema.Schema {
	return m.out
}

// Object returns the catalog name the mapper was built for.
func (m *Mapper) Object() string {
	return m.object
}

// Map converts raw into a structured record. The first offending field aborts
// the conversion with a *FieldError.
func (m *Mapper) Map(raw map[string]any) (Record, error) {
	values, err := m.record("", m.source, raw)
	if err != nil {
		return Record{}, err
	}
	if m.tableField != "" {
		values[m.tableField] = m.table
	}
	return Record{Object: m.object, Table: m.table, Values: values}, nil
}

func (m *Mapper) record(prefix string, s *schema.Schema, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields)+1)
	for _, f := range s.Fields {
		v, err := m.convert(join(prefix, f.Name), f.Schema, raw[f.Name])
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (m *Mapper) convert(path string, s *schema.Schema, v any) (any, error) {
	if v == nil {
		if s.Nullable {
			return nil, nil
		}
		return nil, m.fail(path, "null or missing value for non-nullable %s", s.Type)
	}

	switch s.Type {
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		return b, nil

	case schema.Int:
		n, ok := integer(v)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, m.fail(path, "%d overflows int", n)
		}
		return int32(n), nil

	case schema.Long:
		n, ok := integer(v)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		return n, nil

	case schema.Float:
		x, ok := float(v)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		return float32(x), nil

	case schema.Double:
		x, ok := float(v)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		return x, nil

	case schema.String:
		switch t := v.(type) {
		case string:
			return t, nil
		case map[string]any, []any:
			text, err := gojson.Marshal(t)
			if err != nil {
				return nil, m.fail(path, "serialize nested value: %v", err)
			}
			return string(text), nil
		default:
			return nil, m.mismatch(path, s, v)
		}

	case schema.Record:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		return m.record(path, s, obj)

	case schema.Array:
		items, ok := v.([]any)
		if !ok {
			return nil, m.mismatch(path, s, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := m.convert(path+"["+strconv.Itoa(i)+"]", s.Items, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	return nil, m.fail(path, "unsupported schema type %s", s.Type)
}

func (m *Mapper) fail(path, format string, args ...any) error {
	return &FieldError{Object: m.object, Field: path, Reason: fmt.Sprintf(format, args...)}
}

func (m *Mapper) mismatch(path string, s *schema.Schema, v any) error {
	return m.fail(path, "expected %s, got %s", s.Type, kind(v))
}

// integer accepts JSON numbers without a fractional part.
func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case gojson.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func float(v any) (float64, bool) {
	switch n := v.(type) {
	case gojson.Number:
		x, err := n.Float64()
		return x, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func kind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case gojson.Number, int, int32, int64, float32, float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
