package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantcloudsufi/zendesk/internal/testutil"
	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/client"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
	"github.com/prashantcloudsufi/zendesk/pkg/pagination"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

func newTestClient(t *testing.T, mock *testutil.MockZendesk) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.BaseURL()
	cfg.AdminEmail = "admin@example.com"
	cfg.APIToken = "secret"
	cfg.ConnectTimeout = 5 * time.Second
	cfg.ReadTimeout = 5 * time.Second
	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 5 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func newTestCoordinator(t *testing.T, mock *testutil.MockZendesk, splits []split.Split, workers int) *Coordinator {
	t.Helper()

	c, err := New(Options{
		Splits:         splits,
		Fetcher:        pagination.NewFetcher(newTestClient(t, mock), 100, zerolog.Nop()),
		TableNameField: mapper.DefaultTableNameField,
		Workers:        workers,
		Logger:         zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func groups(ids ...int) []map[string]any {
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id, "name": fmt.Sprintf("group-%d", id)}
	}
	return out
}

func TestRecords_SequentialInPlanOrder(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetOffsetPages("acme", "groups.json", "groups", groups(1, 2))
	mock.SetOffsetPages("beta", "groups.json", "groups", groups(3))

	c := newTestCoordinator(t, mock, []split.Split{
		{Subdomain: "acme", ObjectType: catalog.Groups},
		{Subdomain: "beta", ObjectType: catalog.Groups},
	}, 1)

	var got []string
	for item, err := range c.Records(context.Background()) {
		if err != nil {
			t.Fatalf("Records() error = %v", err)
		}
		got = append(got, fmt.Sprintf("%s:%v", item.Split.Subdomain, item.Record.Get("id")))
		if item.Record.Get("tablename") != "groups" {
			t.Errorf("tablename = %v", item.Record.Get("tablename"))
		}
	}

	want := []string{"acme:1", "acme:2", "beta:3"}
	if !slices.Equal(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
}

func TestRecords_FailedSplitContinues(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("acme", "tags.json", testutil.NewNotFoundResponse())
	mock.SetOffsetPages("acme", "groups.json", "groups", groups(1))

	c := newTestCoordinator(t, mock, []split.Split{
		{Subdomain: "acme", ObjectType: catalog.Tags},
		{Subdomain: "acme", ObjectType: catalog.Groups},
	}, 1)

	var records int
	var errs []error
	for _, err := range c.Records(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records++
	}

	if records != 1 || len(errs) != 1 {
		t.Fatalf("records = %d, errors = %v", records, errs)
	}
	var se *SplitError
	if !errors.As(errs[0], &se) || se.Split.ObjectType != catalog.Tags || se.Split.Subdomain != "acme" {
		t.Errorf("error = %v, want Tags split error", errs[0])
	}
	if !client.IsNotFound(errs[0]) {
		t.Errorf("error %v is not a not-found", errs[0])
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetOffsetPages("acme", "groups.json", "groups", groups(1, 2))
	mock.SetResponse("acme", "tags.json", testutil.NewServerErrorResponse())
	mock.SetOffsetPages("acme", "ticket_fields.json", "ticket_fields", []map[string]any{{"id": 7, "type": "text"}})

	c := newTestCoordinator(t, mock, []split.Split{
		{Subdomain: "acme", ObjectType: catalog.Groups},
		{Subdomain: "acme", ObjectType: catalog.Tags},
		{Subdomain: "acme", ObjectType: catalog.TicketFields},
	}, 3)

	var items []Item
	report, err := c.Run(context.Background(), func(it Item) error {
		items = append(items, it)
		return nil
	})

	if err == nil {
		t.Fatal("Run() error = nil, want Tags failure")
	}
	if !errors.Is(err, client.ErrRetryExhausted) {
		t.Errorf("error = %v, want retry exhaustion", err)
	}
	if len(items) != 3 || report.Records() != 3 {
		t.Errorf("items = %d, report records = %d; want 3", len(items), report.Records())
	}
	if report.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", report.Succeeded())
	}

	failed := report.Failed()
	if len(failed) != 1 || failed[0].Split.ObjectType != catalog.Tags {
		t.Fatalf("Failed() = %+v", failed)
	}
	if got := mock.RequestsTo("acme", "tags.json"); len(got) != 3 {
		t.Errorf("tags attempts = %d, want 3", len(got))
	}
	if report.Splits[0].State != StateDone || report.Splits[0].Records != 2 {
		t.Errorf("groups status = %+v", report.Splits[0])
	}
}

func TestRun_SchemaViolationNamesField(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("acme", "groups.json", testutil.NewOKResponse(`{"groups":[{"id":1},{"id":"two"}]}`))

	c := newTestCoordinator(t, mock, []split.Split{{Subdomain: "acme", ObjectType: catalog.Groups}}, 1)
	report, err := c.Run(context.Background(), func(Item) error { return nil })

	if !errors.Is(err, mapper.ErrSchemaViolation) {
		t.Fatalf("error = %v, want schema violation", err)
	}
	var se *SplitError
	if !errors.As(err, &se) || se.Field() != "id" || se.Page != 1 {
		t.Errorf("split error = %+v", se)
	}
	if report.Splits[0].Records != 1 {
		t.Errorf("records before violation = %d, want 1", report.Splits[0].Records)
	}
}

func TestRun_StateHistory(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetSequence("acme", "groups.json",
		testutil.NewServerErrorResponse(),
		testutil.NewOKResponse(`{"groups":[{"id":1}]}`),
	)

	c := newTestCoordinator(t, mock, []split.Split{{Subdomain: "acme", ObjectType: catalog.Groups}}, 1)
	report, err := c.Run(context.Background(), func(Item) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	st := report.Splits[0]
	want := []State{StateFetchingPage, StateRetrying, StateFetchingPage, StateMapping, StateDone}
	if !slices.Equal(st.History, want) {
		t.Errorf("History = %v, want %v", st.History, want)
	}
	if st.Retries != 1 || st.Attempts != 2 || st.Pages != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestRun_EmitErrorStopsRun(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetOffsetPages("acme", "groups.json", "groups", groups(1, 2, 3))

	sinkErr := errors.New("disk full")
	c := newTestCoordinator(t, mock, []split.Split{{Subdomain: "acme", ObjectType: catalog.Groups}}, 1)

	calls := 0
	_, err := c.Run(context.Background(), func(Item) error {
		calls++
		return sinkErr
	})

	if !errors.Is(err, sinkErr) {
		t.Errorf("error = %v, want sink error", err)
	}
	if calls != 1 {
		t.Errorf("emit calls = %d, want 1", calls)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()

	c := newTestCoordinator(t, mock, []split.Split{
		{Subdomain: "acme", ObjectType: catalog.Groups},
		{Subdomain: "beta", ObjectType: catalog.Groups},
	}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := c.Run(ctx, func(Item) error { return nil })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(report.Failed()) != 2 {
		t.Errorf("Failed() = %d, want 2", len(report.Failed()))
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.GetRequestCount())
	}
}

func TestSchemasAndArtifacts(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()

	c := newTestCoordinator(t, mock, []split.Split{
		{Subdomain: "acme", ObjectType: catalog.TicketMetrics},
		{Subdomain: "acme", ObjectType: catalog.Groups},
		{Subdomain: "beta", ObjectType: catalog.Groups},
	}, 2)

	schemas := c.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("Schemas() = %d entries, want 2", len(schemas))
	}
	if _, ok := schemas[catalog.TicketMetrics].Field("tablename"); !ok {
		t.Error("Ticket Metrics schema lacks tablename")
	}

	artifacts := c.Artifacts()
	if _, ok := artifacts["ticket_metrics"]; !ok {
		t.Errorf("Artifacts() keys = %v", artifacts)
	}
	if !c.Multi() || c.RunID() == "" {
		t.Errorf("Multi() = %v, RunID() = %q", c.Multi(), c.RunID())
	}
}

func TestNew_Errors(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	fetcher := pagination.NewFetcher(newTestClient(t, mock), 100, zerolog.Nop())
	splits := []split.Split{
		{Subdomain: "acme", ObjectType: catalog.Groups},
		{Subdomain: "acme", ObjectType: catalog.Tags},
	}

	_, err := New(Options{Splits: splits, Fetcher: fetcher, TableNameField: "name"})
	if !errors.Is(err, mapper.ErrTableNameCollision) {
		t.Errorf("collision error = %v", err)
	}

	override := schema.RecordOf("custom", schema.NewField("id", schema.NullableOf(schema.Of(schema.Long))))
	_, err = New(Options{Splits: splits, Fetcher: fetcher, SchemaOverride: override})
	if !errors.Is(err, ErrOverrideNeedsOneObject) {
		t.Errorf("override error = %v", err)
	}

	if _, err := New(Options{Splits: splits}); err == nil {
		t.Error("missing fetcher accepted")
	}
}

func TestBuild(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetOffsetPages("acme", "groups.json", "groups", groups(1, 2))

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeSingle
	cfg.BaseURL = mock.BaseURL()
	cfg.Connection.AdminEmail = "admin@example.com"
	cfg.Connection.APIToken = "secret"
	cfg.Connection.Subdomains = []string{"acme"}
	cfg.ObjectsToPull = []string{catalog.Groups}
	cfg.Schema = `{"type":"record","name":"g","fields":[{"name":"id","type":["long","null"]}]}`

	c, err := Build(cfg, newTestClient(t, mock), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if c.Multi() {
		t.Error("single mode coordinator is multiplexed")
	}
	if got := c.Schemas()[catalog.Groups].FieldNames(); !slices.Equal(got, []string{"id"}) {
		t.Errorf("schema fields = %v, want override", got)
	}

	var records []mapper.Record
	if _, err := c.Run(context.Background(), func(it Item) error {
		records = append(records, it.Record)
		return nil
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 2 || len(records[0].Values) != 1 {
		t.Errorf("records = %+v", records)
	}
}

func TestBuild_ConfigFailures(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connection.Subdomains = []string{"acme"}

	_, err := Build(cfg, nil, zerolog.Nop())

	var fs config.Failures
	if !errors.As(err, &fs) {
		t.Fatalf("error = %v, want config.Failures", err)
	}
	if !fs.Has(config.PropAdminEmail) || !fs.Has(config.PropAPIToken) {
		t.Errorf("properties = %v", fs.Properties())
	}
}

func TestFromSplits_DecodedPlan(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetOffsetPages("beta", "groups.json", "groups", groups(7))

	data, err := split.Marshal([]split.Split{{Subdomain: "beta", ObjectType: catalog.Groups}})
	if err != nil {
		t.Fatal(err)
	}
	splits, err := split.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	c, err := FromSplits(cfg, splits, newTestClient(t, mock), zerolog.Nop())
	if err != nil {
		t.Fatalf("FromSplits() error = %v", err)
	}
	if !c.Multi() {
		t.Error("multi mode expected from default configuration")
	}

	var got []mapper.Record
	for it, err := range c.Records(context.Background()) {
		if err != nil {
			t.Fatalf("Records() error = %v", err)
		}
		got = append(got, it.Record)
	}
	if len(got) != 1 || got[0].Get("tablename") != "groups" || got[0].Get("id") != int64(7) {
		t.Errorf("records = %+v", got)
	}
}
