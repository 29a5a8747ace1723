package split

import (
	"errors"
	"fmt"
	"time"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
)

var (
	// ErrNoSubdomains is returned when there is nothing to plan against.
	ErrNoSubdomains = errors.New("no subdomains")

	// ErrUnknownObject is returned for object types missing from the catalog.
	ErrUnknownObject = errors.New("unknown object type")

	// ErrStartDateRequired is returned when a date-filtered object type has no start date.
	ErrStartDateRequired = errors.New("start date required")
)

// Request is the input of Plan.
type Request struct {
	Subdomains []string
	Objects    []string
	StartDate  *time.Time
	EndDate    *time.Time
	Score      string
}

// Plan produces one split per (subdomain, object type) pair, subdomain-major,
// with object types ordered as in the catalog. Duplicate subdomains or object
// types are planned once. Date bounds are attached only to object types that
// accept them, and the score only to those that accept a score.
func Plan(req Request) ([]Split, error) {
	subdomains := dedupe(req.Subdomains)
	if len(subdomains) == 0 {
		return nil, ErrNoSubdomains
	}

	objects, err := orderObjects(req.Objects)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, config.ErrNoObjects
	}

	var errs []error
	for _, d := range objects {
		if d.DateFilter && req.StartDate == nil {
			errs = append(errs, fmt.Errorf("%w for %s", ErrStartDateRequired, d.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	splits := make([]Split, 0, len(subdomains)*len(objects))
	for _, sub := range subdomains {
		for _, d := range objects {
			s := Split{Subdomain: sub, ObjectType: d.Name}
			if d.DateFilter {
				s.StartDate = req.StartDate
				s.EndDate = req.EndDate
			}
			if d.ScoreFilter {
				s.Score = req.Score
			}
			splits = append(splits, s)
		}
	}
	return splits, nil
}

// FromConfig plans the splits for a configuration. Single mode resolves the
// one pulled object type; multi mode resolves pull minus skip.
func FromConfig(cfg config.Config) ([]Split, error) {
	objects, err := cfg.Objects()
	if err != nil {
		return nil, err
	}
	if cfg.Mode == config.ModeSingle && len(objects) != 1 {
		return nil, fmt.Errorf("single mode resolves %d objects, want 1", len(objects))
	}

	start, end, err := cfg.Dates()
	if err != nil {
		return nil, err
	}

	return Plan(Request{
		Subdomains: cfg.Connection.SubdomainList(),
		Objects:    objects,
		StartDate:  start,
		EndDate:    end,
		Score:      cfg.SatisfactionRatingsScore,
	})
}

func orderObjects(names []string) ([]catalog.Descriptor, error) {
	want := make(map[string]bool, len(names))
	var errs []error
	for _, n := range names {
		if _, ok := catalog.Lookup(n); !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownObject, n))
			continue
		}
		want[n] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var out []catalog.Descriptor
	for _, d := range catalog.All() {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
