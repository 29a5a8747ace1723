package artifact

import (
	"slices"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// NamePrefix is prepended to the table key of every artifact.
const NamePrefix = "multisink."

// Name returns the artifact name of a table key.
func Name(table string) string {
	return NamePrefix + table
}

// Entry is one published schema.
type Entry struct {
	Name        string            `json:"name"`
	Table       string            `json:"table"`
	RunID       string            `json:"run_id"`
	PublishedAt time.Time         `json:"published_at"`
	Schema      gojson.RawMessage `json:"schema"`
}

// Parse decodes the entry's schema.
func (e *Entry) Parse() (*schema.Schema, error) {
	return schema.Parse(string(e.Schema))
}

// entries builds the entries of a publication, ordered by table key.
func entries(runID string, artifacts map[string]*schema.Schema, now time.Time) ([]Entry, error) {
	tables := make([]string, 0, len(artifacts))
	for table := range artifacts {
		tables = append(tables, table)
	}
	slices.Sort(tables)

	out := make([]Entry, 0, len(tables))
	for _, table := range tables {
		data, err := artifacts[table].MarshalJSON()
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Name:        Name(table),
			Table:       table,
			RunID:       runID,
			PublishedAt: now,
			Schema:      data,
		})
	}
	return out, nil
}
