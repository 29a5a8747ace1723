package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Run extracts every split on a pool of workers and calls emit for each
// record. emit is always called from the calling goroutine, so it needs no
// locking. Records of one split arrive in page order; records of different
// splits interleave.
//
// A failing split does not stop the others. An emit error or a cancelled ctx
// stops the run: in-flight requests are abandoned and unfinished splits are
// reported as failed. The returned error is Report.Err().
func (c *Coordinator) Run(ctx context.Context, emit func(Item) error) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &Report{
		RunID:   c.runID,
		Started: time.Now(),
		Splits:  make([]SplitStatus, len(c.splits)),
	}
	for i, sp := range c.splits {
		report.Splits[i] = SplitStatus{Split: sp}
	}

	workers := min(c.workers, len(c.splits))
	c.logger.Info().
		Int("splits", len(c.splits)).
		Int("workers", workers).
		Msg("Starting extraction run")

	queue := make(chan int, len(c.splits))
	for i := range c.splits {
		queue <- i
	}
	close(queue)

	results := make(chan Item, max(workers, 1))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go c.worker(ctx, w, queue, report.Splits, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	emitted := 0
	for item := range results {
		if report.emitErr != nil {
			continue
		}
		if err := emit(item); err != nil {
			report.emitErr = fmt.Errorf("emit %s record: %w", item.Split, err)
			c.logger.Error().Err(err).Msg("Emit failed, stopping run")
			cancel()
			continue
		}
		emitted++

		if emitted%10000 == 0 {
			c.logger.Info().
				Int("records", emitted).
				Msg("Extraction progress")
		}
	}

	// Splits never picked up by a worker.
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	for i := range report.Splits {
		st := &report.Splits[i]
		if st.State == StatePlanned {
			c.fail(st, cause, c.logger.With().
				Str("subdomain", st.Split.Subdomain).
				Str("object", st.Split.ObjectType).
				Logger())
		}
	}

	report.Finished = time.Now()
	c.logger.Info().
		Int("splits", len(report.Splits)).
		Int("failed", len(report.Failed())).
		Int("records", report.Records()).
		Dur("duration", report.Finished.Sub(report.Started)).
		Msg("Extraction run complete")

	return report, report.Err()
}

// worker extracts splits from the queue until it is drained.
func (c *Coordinator) worker(ctx context.Context, id int, queue <-chan int, statuses []SplitStatus, results chan<- Item, wg *sync.WaitGroup) {
	defer wg.Done()
	processed := 0

	for idx := range queue {
		if ctx.Err() != nil {
			c.logger.Debug().
				Int("worker_id", id).
				Int("splits_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		st := &statuses[idx]
		send := func(it Item) bool {
			select {
			case results <- it:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if stopped := c.walk(ctx, st, send); stopped {
			c.fail(st, ctx.Err(), c.logger.With().
				Str("subdomain", st.Split.Subdomain).
				Str("object", st.Split.ObjectType).
				Logger())
		}
		processed++
	}

	if processed > 0 {
		c.logger.Debug().
			Int("worker_id", id).
			Int("splits_processed", processed).
			Msg("Worker completed")
	}
}

// Report is the outcome of a run.
type Report struct {
	RunID    string
	Splits   []SplitStatus
	Started  time.Time
	Finished time.Time

	emitErr error
}

// Records returns the number of records emitted.
func (r *Report) Records() int {
	n := 0
	for _, s := range r.Splits {
		n += s.Records
	}
	return n
}

// Failed returns the failed splits in plan order.
func (r *Report) Failed() []SplitStatus {
	var out []SplitStatus
	for _, s := range r.Splits {
		if s.State == StateFailed {
			out = append(out, s)
		}
	}
	return out
}

// Succeeded returns the number of splits that finished.
func (r *Report) Succeeded() int {
	n := 0
	for _, s := range r.Splits {
		if s.State == StateDone {
			n++
		}
	}
	return n
}

// Err aggregates the emit failure and every split failure, or returns nil.
func (r *Report) Err() error {
	errs := []error{r.emitErr}
	for _, s := range r.Splits {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}
