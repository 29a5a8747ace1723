package mapper

import (
	"github.com/linkedin/goavro/v2"

	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// Native returns r in the form goavro expects for schema s: non-null values of
// nullable fields are wrapped in their union branch.
func Native(s *schema.Schema, r Record) map[string]any {
	return native(s, r.Values).(map[string]any)
}

func native(s *schema.Schema, v any) any {
	if v == nil {
		return nil
	}

	var out any
	switch s.Type {
	case schema.Record:
		obj := v.(map[string]any)
		m := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			m[f.Name] = native(f.Schema, obj[f.Name])
		}
		out = m
	case schema.Array:
		items := v.([]any)
		a := make([]any, len(items))
		for i, item := range items {
			a[i] = native(s.Items, item)
		}
		out = a
	default:
		out = v
	}

	if s.Nullable {
		return goavro.Union(s.UnionName(), out)
	}
	return out
}
