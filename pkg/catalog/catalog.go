// Package catalog is the static registry of Zendesk object types: where each
// one lives, how it paginates, which filters it accepts and the schema its
// records are mapped to.
//
// The table is built once at package initialization and never modified.
// Adding an object type is a new row in the table, nothing else.
package catalog

import (
	"fmt"
	"maps"
	"strings"

	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// PaginationStyle selects the page walk used for an object type.
type PaginationStyle string

const (
	// CursorIncremental follows the after_cursor token of the incremental
	// export API until end_of_stream.
	CursorIncremental PaginationStyle = "cursor"

	// OffsetList advances a page counter until a short page is returned.
	OffsetList PaginationStyle = "offset"
)

// Object type names, in catalog order.
const (
	ArticleComments     = "Article Comments"
	PostComments        = "Post Comments"
	RequestsComments    = "Requests Comments"
	TicketComments      = "Ticket Comments"
	Groups              = "Groups"
	Organizations       = "Organizations"
	SatisfactionRatings = "Satisfaction Ratings"
	Tags                = "Tags"
	TicketFields        = "Ticket Fields"
	TicketMetrics       = "Ticket Metrics"
	TicketMetricEvents  = "Ticket Metric Events"
	Tickets             = "Tickets"
	Users               = "Users"
)

// Descriptor describes one object type.
type Descriptor struct {
	Name string

	// Endpoint is the path below /api/v2/.
	Endpoint string

	// ItemsKey is the response member holding the page's records.
	ItemsKey string

	Style PaginationStyle

	// DateFilter is set for object types accepting start_time/end_time.
	DateFilter bool

	// ScoreFilter is set for object types accepting score.
	ScoreFilter bool

	// Params are sent with every request of the object type.
	Params map[string]string

	Schema *schema.Schema
}

// clone returns a copy of d that shares no mutable state with the catalog.
func (d Descriptor) clone() Descriptor {
	d.Params = maps.Clone(d.Params)
	return d
}

// TableKey is the normalized name used for the multiplexed table-name field
// and for schema artifact keys.
func (d Descriptor) TableKey() string {
	return TableKey(d.Name)
}

// URL expands baseURL (two %s verbs: subdomain, endpoint) for this object type.
func (d Descriptor) URL(baseURL, subdomain string) string {
	return fmt.Sprintf(baseURL, subdomain, d.Endpoint)
}

// TableKey lower-cases name and replaces spaces with underscores.
// "Ticket Metrics" becomes "ticket_metrics".
func TableKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

var (
	descriptors []Descriptor
	byName      map[string]int
)

func init() {
	descriptors = table()
	byName = make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		if _, dup := byName[d.Name]; dup {
			panic(fmt.Sprintf("catalog: duplicate object type %q", d.Name))
		}
		if _, err := d.Schema.Codec(); err != nil {
			panic(fmt.Sprintf("catalog: %s: %v", d.Name, err))
		}
		byName[d.Name] = i
	}
}

// Lookup returns the descriptor for an exact object type name.
func Lookup(name string) (Descriptor, bool) {
	i, ok := byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return descriptors[i].clone(), true
}

// All returns every descriptor in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.clone()
	}
	return out
}

// Names returns every object type name in catalog order.
func Names() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

// Index returns the catalog position of name, or -1.
func Index(name string) int {
	i, ok := byName[name]
	if !ok {
		return -1
	}
	return i
}
