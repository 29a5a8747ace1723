package mapper

import (
	"bytes"
	"errors"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// decode parses raw JSON the way the fetcher does, keeping numbers exact.
func decode(t *testing.T, text string) map[string]any {
	t.Helper()
	dec := gojson.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("decode %s: %v", text, err)
	}
	return raw
}

func testSchema() *schema.Schema {
	return schema.RecordOf("widget",
		schema.NewField("id", schema.Of(schema.Long)),
		schema.NewField("count", schema.NullableOf(schema.Of(schema.Int))),
		schema.NewField("ratio", schema.NullableOf(schema.Of(schema.Double))),
		schema.NewField("weight", schema.NullableOf(schema.Of(schema.Float))),
		schema.NewField("active", schema.NullableOf(schema.Of(schema.Boolean))),
		schema.NewField("name", schema.NullableOf(schema.Of(schema.String))),
		schema.NewField("extra", schema.NullableOf(schema.Of(schema.String))),
		schema.NewField("via", schema.NullableOf(schema.RecordOf("widget_via",
			schema.NewField("channel", schema.NullableOf(schema.Of(schema.String))),
		))),
		schema.NewField("tags", schema.NullableOf(schema.ArrayOf(schema.Of(schema.String)))),
	)
}

func TestMap_Conforms(t *testing.T) {
	m, err := New("Widgets", testSchema(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, err := m.Map(decode(t, `{
		"id": 9007199254740993,
		"count": 3,
		"ratio": 0.25,
		"weight": 1.5,
		"active": true,
		"name": "w",
		"extra": {"b": 2, "a": [1, "x"]},
		"via": {"channel": "web", "source": {"rel": null}},
		"tags": ["red", "blue"],
		"ignored": "dropped"
	}`))
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	checks := map[string]any{
		"id":     int64(9007199254740993),
		"count":  int32(3),
		"ratio":  0.25,
		"weight": float32(1.5),
		"active": true,
		"name":   "w",
		"extra":  `{"a":[1,"x"],"b":2}`,
	}
	for name, want := range checks {
		if got := rec.Get(name); got != want {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}

	via, ok := rec.Get("via").(map[string]any)
	if !ok || via["channel"] != "web" || len(via) != 1 {
		t.Errorf("via = %#v, want only channel", rec.Get("via"))
	}
	tags, ok := rec.Get("tags").([]any)
	if !ok || len(tags) != 2 || tags[1] != "blue" {
		t.Errorf("tags = %#v", rec.Get("tags"))
	}
	if _, ok := rec.Values["ignored"]; ok {
		t.Error("undeclared field kept")
	}
	if len(rec.Values) != len(testSchema().Fields) {
		t.Errorf("fields = %d, want %d", len(rec.Values), len(testSchema().Fields))
	}
	if rec.Table != "widgets" || rec.Object != "Widgets" {
		t.Errorf("Object, Table = %q, %q", rec.Object, rec.Table)
	}
}

func TestMap_MissingNullable(t *testing.T) {
	m, _ := New("Widgets", testSchema(), "")

	rec, err := m.Map(decode(t, `{"id": 1, "name": null}`))
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	for _, name := range []string{"count", "name", "via", "tags"} {
		v, ok := rec.Values[name]
		if !ok || v != nil {
			t.Errorf("%s = %#v (present %v), want null", name, v, ok)
		}
	}
}

func TestMap_Violations(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{"missing required", `{"name": "w"}`, "id"},
		{"null required", `{"id": null}`, "id"},
		{"string for long", `{"id": "42"}`, "id"},
		{"fraction for long", `{"id": 4.2}`, "id"},
		{"int overflow", `{"id": 1, "count": 3000000000}`, "count"},
		{"number for string", `{"id": 1, "name": 7}`, "name"},
		{"bool for string", `{"id": 1, "name": true}`, "name"},
		{"string for boolean", `{"id": 1, "active": "true"}`, "active"},
		{"string for double", `{"id": 1, "ratio": "0.5"}`, "ratio"},
		{"scalar for record", `{"id": 1, "via": "web"}`, "via"},
		{"nested mismatch", `{"id": 1, "via": {"channel": 5}}`, "via.channel"},
		{"object for array", `{"id": 1, "tags": {"a": 1}}`, "tags"},
		{"array item mismatch", `{"id": 1, "tags": ["a", 2]}`, "tags[1]"},
	}

	m, _ := New("Widgets", testSchema(), "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Map(decode(t, tt.raw))
			if !errors.Is(err, ErrSchemaViolation) {
				t.Fatalf("error = %v, want schema violation", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not a FieldError", err)
			}
			if fe.Field != tt.wantField || fe.Object != "Widgets" {
				t.Errorf("FieldError = %+v, want field %q", fe, tt.wantField)
			}
		})
	}
}

func TestMap_CaseSensitive(t *testing.T) {
	m, _ := New("Widgets", testSchema(), "")
	_, err := m.Map(decode(t, `{"ID": 1}`))

	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "id" {
		t.Errorf("error = %v, want missing id", err)
	}
}

func TestMap_TableNameInjection(t *testing.T) {
	d, _ := catalog.Lookup(catalog.TicketMetrics)
	m, err := ForDescriptor(d, DefaultTableNameField)
	if err != nil {
		t.Fatalf("ForDescriptor() error = %v", err)
	}

	f, ok := m.Schema().Field(DefaultTableNameField)
	if !ok || f.Schema.Type != schema.String || f.Schema.Nullable {
		t.Errorf("table field = %+v, %v", f, ok)
	}
	if _, ok := d.Schema.Field(DefaultTableNameField); ok {
		t.Error("catalog schema was modified")
	}

	rec, err := m.Map(decode(t, `{"id": 5, "ticket_id": 9}`))
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if got := rec.Get(DefaultTableNameField); got != "ticket_metrics" {
		t.Errorf("tablename = %v, want ticket_metrics", got)
	}
}

func TestMap_SingleModeNoTableField(t *testing.T) {
	d, _ := catalog.Lookup(catalog.Groups)
	m, _ := ForDescriptor(d, "")

	rec, err := m.Map(decode(t, `{"id": 1, "name": "Support"}`))
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if _, ok := rec.Values[DefaultTableNameField]; ok {
		t.Error("table field injected in single mode")
	}
	if m.Schema() != d.Schema {
		t.Error("single mode output schema differs from source")
	}
}

func TestNew_TableNameCollision(t *testing.T) {
	s := schema.RecordOf("clash",
		schema.NewField("id", schema.Of(schema.Long)),
		schema.NewField("tablename", schema.NullableOf(schema.Of(schema.String))),
	)
	if _, err := New("Clash", s, "tablename"); !errors.Is(err, ErrTableNameCollision) {
		t.Errorf("error = %v, want ErrTableNameCollision", err)
	}
	if _, err := New("Clash", s, "source_table"); err != nil {
		t.Errorf("other field name error = %v", err)
	}
	if _, err := New("Clash", schema.Of(schema.String), ""); err == nil {
		t.Error("non-record schema accepted")
	}
}

func TestMap_CatalogSchemas(t *testing.T) {
	// An empty record maps for every catalog type since all fields are nullable.
	for _, d := range catalog.All() {
		m, err := ForDescriptor(d, DefaultTableNameField)
		if err != nil {
			t.Errorf("%s: %v", d.Name, err)
			continue
		}
		if _, err := m.Map(map[string]any{}); err != nil {
			t.Errorf("%s: Map({}) error = %v", d.Name, err)
		}
	}
}
