package schema

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
)

// ErrUnsupported is returned for valid Avro constructs the mapper cannot produce.
var ErrUnsupported = errors.New("unsupported schema construct")

// Parse reads an Avro record schema in JSON form. The text must first be a
// valid Avro schema (checked with goavro) and then use only the subset of
// types this package models: primitives, records, arrays and two-branch
// nullable unions.
func Parse(text string) (*Schema, error) {
	if _, err := goavro.NewCodec(text); err != nil {
		return nil, fmt.Errorf("invalid avro schema: %w", err)
	}

	var raw any
	if err := gojson.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode schema json: %w", err)
	}

	s, err := parseNode(raw)
	if err != nil {
		return nil, err
	}
	if s.Type != Record {
		return nil, fmt.Errorf("%w: top-level schema must be a record, got %s", ErrUnsupported, s.Type)
	}
	return s, nil
}

func parseNode(v any) (*Schema, error) {
	switch t := v.(type) {
	case string:
		return parsePrimitive(t)
	case []any:
		return parseUnion(t)
	case map[string]any:
		return parseObject(t)
	default:
		return nil, fmt.Errorf("%w: unexpected schema node %T", ErrUnsupported, v)
	}
}

func parsePrimitive(name string) (*Schema, error) {
	switch t := Type(name); t {
	case Boolean, Int, Long, Float, Double, String:
		return Of(t), nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnsupported, name)
	}
}

func parseUnion(branches []any) (*Schema, error) {
	if len(branches) != 2 {
		return nil, fmt.Errorf("%w: unions must be [type, \"null\"]", ErrUnsupported)
	}
	nullAt := -1
	for i, b := range branches {
		if name, ok := b.(string); ok && name == "null" {
			nullAt = i
		}
	}
	if nullAt < 0 {
		return nil, fmt.Errorf("%w: union without null branch", ErrUnsupported)
	}
	inner, err := parseNode(branches[1-nullAt])
	if err != nil {
		return nil, err
	}
	return NullableOf(inner), nil
}

func parseObject(obj map[string]any) (*Schema, error) {
	switch typ := obj["type"].(type) {
	case string:
		switch Type(typ) {
		case Record:
			return parseRecord(obj)
		case Array:
			items, ok := obj["items"]
			if !ok {
				return nil, fmt.Errorf("array schema without items")
			}
			is, err := parseNode(items)
			if err != nil {
				return nil, err
			}
			return ArrayOf(is), nil
		default:
			// {"type": "long", "logicalType": ...} keeps the underlying type.
			return parsePrimitive(typ)
		}
	case nil:
		return nil, fmt.Errorf("schema object without type")
	default:
		return parseNode(typ)
	}
}

func parseRecord(obj map[string]any) (*Schema, error) {
	name, _ := obj["name"].(string)
	rawFields, ok := obj["fields"].([]any)
	if !ok {
		return nil, fmt.Errorf("record %q without fields", name)
	}

	fields := make([]Field, 0, len(rawFields))
	for i, rf := range rawFields {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %q field %d is not an object", name, i)
		}
		fname, _ := fm["name"].(string)
		fs, err := parseNode(fm["type"])
		if err != nil {
			return nil, fmt.Errorf("record %q field %q: %w", name, fname, err)
		}
		fields = append(fields, NewField(fname, fs))
	}
	return RecordOf(name, fields...), nil
}
