// Package split defines the unit of extraction work and the planner that
// expands a configuration into the ordered set of splits for a run.
package split

import (
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
)

// Split is one object type fetched from one subdomain. Splits are values and
// are never modified after planning.
type Split struct {
	Subdomain  string     `json:"subdomain"`
	ObjectType string     `json:"object_type"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Score      string     `json:"score,omitempty"`
}

// ID identifies the split in logs, metrics and reports.
func (s Split) ID() string {
	return s.Subdomain + "/" + catalog.TableKey(s.ObjectType)
}

// String implements fmt.Stringer.
func (s Split) String() string {
	return fmt.Sprintf("%s:%s", s.Subdomain, s.ObjectType)
}

// Descriptor returns the catalog entry for the split's object type.
func (s Split) Descriptor() (catalog.Descriptor, error) {
	d, ok := catalog.Lookup(s.ObjectType)
	if !ok {
		return catalog.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownObject, s.ObjectType)
	}
	return d, nil
}

// Marshal encodes splits as JSON so that they can be handed to another process.
func Marshal(splits []Split) ([]byte, error) {
	return gojson.Marshal(splits)
}

// Unmarshal decodes splits produced by Marshal and checks that every object
// type is known.
func Unmarshal(data []byte) ([]Split, error) {
	var splits []Split
	if err := gojson.Unmarshal(data, &splits); err != nil {
		return nil, fmt.Errorf("decode splits: %w", err)
	}
	var errs []error
	for i, s := range splits {
		if _, err := s.Descriptor(); err != nil {
			errs = append(errs, fmt.Errorf("split %d: %w", i, err))
		}
		if s.Subdomain == "" {
			errs = append(errs, fmt.Errorf("split %d: %w", i, ErrNoSubdomains))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return splits, nil
}
