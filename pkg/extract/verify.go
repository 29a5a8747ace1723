package extract

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
)

// IndexByID keys records by table and the value of idField, as "table/id".
// Records without an id or with a repeated key are an error, so that a
// comparison never silently matches the wrong record.
func IndexByID(records []mapper.Record, idField string) (map[string]mapper.Record, error) {
	out := make(map[string]mapper.Record, len(records))
	for i, r := range records {
		id := r.Get(idField)
		if id == nil {
			return nil, fmt.Errorf("record %d of %s has no %q", i, r.Object, idField)
		}
		key := fmt.Sprintf("%s/%v", r.Table, id)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate record %s", key)
		}
		out[key] = r
	}
	return out, nil
}

// Diff is the result of comparing two record sets by id. Keys are sorted.
type Diff struct {
	Missing    []string
	Unexpected []string
	Changed    []string
}

// Empty reports whether both sets hold the same records.
func (d Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0 && len(d.Changed) == 0
}

// Compare matches expected and actual records by id, independent of order.
func Compare(expected, actual []mapper.Record, idField string) (Diff, error) {
	want, err := IndexByID(expected, idField)
	if err != nil {
		return Diff{}, fmt.Errorf("expected: %w", err)
	}
	got, err := IndexByID(actual, idField)
	if err != nil {
		return Diff{}, fmt.Errorf("actual: %w", err)
	}

	var d Diff
	for _, key := range slices.Sorted(maps.Keys(want)) {
		g, ok := got[key]
		switch {
		case !ok:
			d.Missing = append(d.Missing, key)
		case !reflect.DeepEqual(want[key].Values, g.Values):
			d.Changed = append(d.Changed, key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(got)) {
		if _, ok := want[key]; !ok {
			d.Unexpected = append(d.Unexpected, key)
		}
	}
	return d, nil
}
