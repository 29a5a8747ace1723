package split

import (
	"errors"
	"testing"
	"time"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
)

func date(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestPlan_Completeness(t *testing.T) {
	tests := []struct {
		name       string
		subdomains []string
		objects    []string
	}{
		{"one by one", []string{"acme"}, []string{"Groups"}},
		{"two by three", []string{"acme", "beta"}, []string{"Groups", "Tags", "Ticket Fields"}},
		{"all objects", []string{"a", "b", "c"}, catalog.Names()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := Plan(Request{
				Subdomains: tt.subdomains,
				Objects:    tt.objects,
				StartDate:  date("2024-01-01T00:00:00Z"),
			})
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}

			if len(splits) != len(tt.subdomains)*len(tt.objects) {
				t.Fatalf("Plan() returned %d splits, want %d", len(splits), len(tt.subdomains)*len(tt.objects))
			}
			seen := make(map[string]bool)
			for _, s := range splits {
				if seen[s.ID()] {
					t.Errorf("duplicate split %s", s.ID())
				}
				seen[s.ID()] = true
			}
		})
	}
}

func TestPlan_Order(t *testing.T) {
	splits, err := Plan(Request{
		Subdomains: []string{"zeta", "acme", "zeta"},
		Objects:    []string{"Tags", "Groups"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	want := []string{"zeta:Groups", "zeta:Tags", "acme:Groups", "acme:Tags"}
	if len(splits) != len(want) {
		t.Fatalf("Plan() = %v", splits)
	}
	for i, s := range splits {
		if s.String() != want[i] {
			t.Errorf("splits[%d] = %s, want %s", i, s, want[i])
		}
	}
}

func TestPlan_Filters(t *testing.T) {
	start := date("2024-01-01T00:00:00Z")
	end := date("2024-02-01T00:00:00Z")

	splits, err := Plan(Request{
		Subdomains: []string{"acme"},
		Objects:    []string{"Groups", "Satisfaction Ratings", "Tickets"},
		StartDate:  start,
		EndDate:    end,
		Score:      "good",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	byObject := make(map[string]Split)
	for _, s := range splits {
		byObject[s.ObjectType] = s
	}

	if g := byObject["Groups"]; g.StartDate != nil || g.Score != "" {
		t.Errorf("Groups split carries filters: %+v", g)
	}
	if r := byObject["Satisfaction Ratings"]; r.Score != "good" || r.StartDate != nil {
		t.Errorf("Satisfaction Ratings split = %+v, want score only", r)
	}
	tk := byObject["Tickets"]
	if tk.StartDate == nil || !tk.StartDate.Equal(*start) || tk.EndDate == nil || !tk.EndDate.Equal(*end) {
		t.Errorf("Tickets split dates = %v..%v", tk.StartDate, tk.EndDate)
	}
	if tk.Score != "" {
		t.Errorf("Tickets split carries score %q", tk.Score)
	}
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no subdomains", Request{Objects: []string{"Groups"}}, ErrNoSubdomains},
		{"unknown object", Request{Subdomains: []string{"acme"}, Objects: []string{"Macros"}}, ErrUnknownObject},
		{"no objects", Request{Subdomains: []string{"acme"}}, config.ErrNoObjects},
		{"missing start", Request{Subdomains: []string{"acme"}, Objects: []string{"Users"}}, ErrStartDateRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Plan() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connection.Subdomains = []string{"acme, beta"}
	cfg.ObjectsToSkip = []string{"Tickets", "Users", "Organizations", "Ticket Comments", "Ticket Metrics", "Ticket Metric Events"}

	splits, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if len(splits) != 2*7 {
		t.Errorf("FromConfig() returned %d splits, want 14", len(splits))
	}

	cfg.Mode = config.ModeSingle
	cfg.ObjectsToPull = []string{"Groups"}
	cfg.ObjectsToSkip = nil
	splits, err = FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig(single) error = %v", err)
	}
	if len(splits) != 2 {
		t.Errorf("single mode returned %d splits, want one per subdomain", len(splits))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := []Split{
		{Subdomain: "acme", ObjectType: "Tickets", StartDate: date("2024-01-01T00:00:00Z")},
		{Subdomain: "acme", ObjectType: "Satisfaction Ratings", Score: "bad"},
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(out) != 2 || out[0].ID() != "acme/tickets" || !out[0].StartDate.Equal(*in[0].StartDate) {
		t.Errorf("Unmarshal() = %+v", out)
	}
	if out[1].Score != "bad" || out[1].StartDate != nil {
		t.Errorf("Unmarshal()[1] = %+v", out[1])
	}
}

func TestUnmarshal_Rejects(t *testing.T) {
	if _, err := Unmarshal([]byte(`[{"subdomain":"acme","object_type":"Macros"}]`)); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownObject", err)
	}
	if _, err := Unmarshal([]byte(`[{"object_type":"Groups"}]`)); !errors.Is(err, ErrNoSubdomains) {
		t.Errorf("Unmarshal() error = %v, want ErrNoSubdomains", err)
	}
}
