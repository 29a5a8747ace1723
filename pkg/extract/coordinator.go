// Package extract drives a run: it plans splits, walks each split's pages,
// maps every raw record and hands structured records downstream.
//
// Each split moves through
//
//	planned → fetching_page(n) → [retrying(n) ⇄ fetching_page(n)] → mapping(n) → fetching_page(n+1) | done
//
// and any unrecoverable error moves it to failed. A failed split stops only its
// own sequence; the other splits of the run carry on and every failure is
// collected in the Report.
package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/client"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
	"github.com/prashantcloudsufi/zendesk/pkg/logging"
	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
	"github.com/prashantcloudsufi/zendesk/pkg/pagination"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

// ErrOverrideNeedsOneObject is returned when a schema override is combined
// with more than one object type.
var ErrOverrideNeedsOneObject = errors.New("schema override requires exactly one object type")

// Item is one structured record together with the split that produced it.
type Item struct {
	Split  split.Split
	Record mapper.Record
}

// Options configures a Coordinator.
type Options struct {
	Splits  []split.Split
	Fetcher *pagination.Fetcher

	// TableNameField selects multi-object mode when non-empty.
	TableNameField string

	// SchemaOverride replaces the catalog schema of the single object type.
	SchemaOverride *schema.Schema

	// Workers is the number of splits extracted concurrently by Run.
	Workers int

	RunID  string
	Logger zerolog.Logger
}

// Coordinator runs the splits of one extraction.
type Coordinator struct {
	splits  []split.Split
	objects []string
	fetcher *pagination.Fetcher
	mappers map[string]*mapper.Mapper
	multi   bool
	workers int
	runID   string
	logger  zerolog.Logger
}

// New creates a coordinator. Mapper construction errors, such as a
// table-name collision, are collected across object types.
func New(opts Options) (*Coordinator, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	c := &Coordinator{
		splits:  append([]split.Split(nil), opts.Splits...),
		fetcher: opts.Fetcher,
		mappers: make(map[string]*mapper.Mapper),
		multi:   opts.TableNameField != "",
		workers: opts.Workers,
		runID:   opts.RunID,
		logger:  logging.ForRun(opts.Logger.With().Str(logging.FieldComponent, "extract").Logger(), opts.RunID),
	}

	for _, sp := range c.splits {
		if _, ok := c.mappers[sp.ObjectType]; !ok {
			c.mappers[sp.ObjectType] = nil
			c.objects = append(c.objects, sp.ObjectType)
		}
	}
	if opts.SchemaOverride != nil && len(c.objects) != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrOverrideNeedsOneObject, len(c.objects))
	}

	var errs []error
	for _, name := range c.objects {
		d, ok := catalog.Lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", split.ErrUnknownObject, name))
			continue
		}
		s := d.Schema
		if opts.SchemaOverride != nil {
			s = opts.SchemaOverride
		}
		m, err := mapper.New(name, s, opts.TableNameField)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.mappers[name] = m
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Build validates cfg and creates the coordinator for it. Configuration
// problems are returned together as config.Failures before any request is made.
func Build(cfg config.Config, getter pagination.Getter, logger zerolog.Logger) (*Coordinator, error) {
	if err := cfg.Validate().Err(); err != nil {
		return nil, err
	}

	splits, err := split.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("plan splits: %w", err)
	}
	return FromSplits(cfg, splits, getter, logger)
}

// FromSplits creates a coordinator for splits planned elsewhere, typically
// decoded with split.Unmarshal. cfg supplies mode, schema override and tuning
// and is expected to be valid.
func FromSplits(cfg config.Config, splits []split.Split, getter pagination.Getter, logger zerolog.Logger) (*Coordinator, error) {
	override, err := cfg.SchemaOverride()
	if err != nil {
		return nil, fmt.Errorf("schema override: %w", err)
	}

	tableField := ""
	if cfg.Mode == config.ModeMulti {
		tableField = cfg.TableNameField
	}

	return New(Options{
		Splits:         splits,
		Fetcher:        pagination.NewFetcher(getter, cfg.PageSize, logger),
		TableNameField: tableField,
		SchemaOverride: override,
		Workers:        cfg.Workers,
		Logger:         logger,
	})
}

// RunID identifies the run in logs and artifacts.
func (c *Coordinator) RunID() string {
	return c.runID
}

// Multi reports whether records carry the table-name field.
func (c *Coordinator) Multi() bool {
	return c.multi
}

// Splits returns the planned splits in order.
func (c *Coordinator) Splits() []split.Split {
	return append([]split.Split(nil), c.splits...)
}

// Schemas maps each planned object type to its output schema.
func (c *Coordinator) Schemas() map[string]*schema.Schema {
	out := make(map[string]*schema.Schema, len(c.mappers))
	for name, m := range c.mappers {
		out[name] = m.Schema()
	}
	return out
}

// Artifacts maps each planned object type's table key to its output schema.
func (c *Coordinator) Artifacts() map[string]*schema.Schema {
	out := make(map[string]*schema.Schema, len(c.mappers))
	for name, m := range c.mappers {
		out[catalog.TableKey(name)] = m.Schema()
	}
	return out
}

// Records returns every structured record of the run, split after split in
// plan order. A failed split yields its *SplitError once and the sequence
// continues with the next split. Cancelling ctx ends the sequence after the
// failure it causes.
func (c *Coordinator) Records(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for _, sp := range c.splits {
			st := &SplitStatus{Split: sp}
			if stopped := c.walk(ctx, st, func(it Item) bool { return yield(it, nil) }); stopped {
				return
			}
			if st.Err == nil {
				continue
			}
			if !yield(Item{Split: sp}, st.Err) || ctx.Err() != nil {
				return
			}
		}
	}
}

// walk extracts one split, passing each record to yield. It reports whether
// yield asked to stop; st holds the outcome otherwise.
func (c *Coordinator) walk(ctx context.Context, st *SplitStatus, yield func(Item) bool) (stopped bool) {
	sp := st.Split
	logger := c.logger.With().
		Str("subdomain", sp.Subdomain).
		Str("object", sp.ObjectType).
		Logger()

	m := c.mappers[sp.ObjectType]
	if m == nil {
		c.fail(st, fmt.Errorf("%w: %q", split.ErrUnknownObject, sp.ObjectType), logger)
		return false
	}

	st.Started = time.Now()
	splitsInProgress.Inc()
	defer splitsInProgress.Dec()
	logger.Info().Msg("Starting split")

	hooks := pagination.Hooks{
		PageStart: func(n int) {
			st.Page = n
			st.Attempt = 0
			st.advance(StateFetchingPage)
		},
		Retry: func(n int, e client.RetryEvent) {
			if st.State == StateRetrying {
				st.advance(StateFetchingPage)
			}
			st.Attempt = e.Attempt
			st.Retries++
			st.advance(StateRetrying)
		},
	}

	for page, err := range c.fetcher.Pages(ctx, sp, hooks) {
		if err != nil {
			c.fail(st, err, logger)
			return false
		}
		if st.State == StateRetrying {
			st.advance(StateFetchingPage)
		}
		st.advance(StateMapping)
		st.Pages++
		st.Attempts += page.Attempts
		st.Throttles += page.Throttles

		for _, raw := range page.Items {
			rec, err := m.Map(raw)
			if err != nil {
				schemaViolations.WithLabelValues(sp.ObjectType).Inc()
				c.fail(st, err, logger)
				return false
			}
			if !yield(Item{Split: sp, Record: rec}) {
				return true
			}
			st.Records++
			recordsEmitted.WithLabelValues(sp.ObjectType).Inc()
		}

		if page.Terminal() {
			st.advance(StateDone)
		}
	}

	if st.State != StateDone {
		c.fail(st, fmt.Errorf("split ended in state %s", st.State), logger)
		return false
	}

	st.Finished = time.Now()
	splitsTotal.WithLabelValues(sp.ObjectType, StateDone.String()).Inc()
	splitDuration.WithLabelValues(sp.ObjectType).Observe(st.Duration().Seconds())
	logger.Info().
		Int("pages", st.Pages).
		Int("records", st.Records).
		Int("retries", st.Retries).
		Dur("duration", st.Duration()).
		Msg("Split complete")
	return false
}

func (c *Coordinator) fail(st *SplitStatus, err error, logger zerolog.Logger) {
	if !st.State.Terminal() {
		st.advance(StateFailed)
	}
	splitErr := &SplitError{Split: st.Split, Page: st.Page, Err: err}
	st.Err = splitErr
	st.Finished = time.Now()

	splitsTotal.WithLabelValues(st.Split.ObjectType, StateFailed.String()).Inc()
	event := logger.Error().
		Err(err).
		Int("page", st.Page).
		Int("records", st.Records).
		Str("error_class", string(client.Classify(err)))
	if field := splitErr.Field(); field != "" {
		event = event.Str("field", field)
	}
	event.Msg("Split failed")
}
