package pagination

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantcloudsufi/zendesk/pkg/client"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

// DefaultPageSize is the per_page value used when none is configured.
const DefaultPageSize = 100

// Getter performs one logical GET including retries. *client.Client
// implements it.
type Getter interface {
	Get(ctx context.Context, req client.Request) (*client.Response, error)
}

// Hooks observe the page walk. All fields are optional.
type Hooks struct {
	// PageStart is called before page n is requested.
	PageStart func(n int)

	// Retry is called before each backoff sleep while fetching page n.
	Retry func(n int, event client.RetryEvent)
}

// Fetcher walks the pages of splits. It holds no per-split state and is safe
// for concurrent use.
type Fetcher struct {
	getter   Getter
	pageSize int
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher requesting pageSize items per page.
func NewFetcher(getter Getter, pageSize int, logger zerolog.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		getter:   getter,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "pagination").Logger(),
	}
}

// PageSize returns the configured per_page value.
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// Pages returns the pages of sp in order. The sequence is lazy: page n+1 is
// only requested once page n has been consumed. It stops at the first error,
// which is yielded with a nil page. It can be iterated once.
func (f *Fetcher) Pages(ctx context.Context, sp split.Split, hooks Hooks) iter.Seq2[*Page, error] {
	var used atomic.Bool

	return func(yield func(*Page, error) bool) {
		if used.Swap(true) {
			yield(nil, ErrConsumed)
			return
		}

		desc, err := sp.Descriptor()
		if err != nil {
			yield(nil, err)
			return
		}
		style, err := StyleOf(desc.Style)
		if err != nil {
			yield(nil, err)
			return
		}
		filter := FilterFor(sp, desc, f.pageSize)
		logger := f.logger.With().
			Str("subdomain", sp.Subdomain).
			Str("object", sp.ObjectType).
			Logger()

		cursor := ""
		for n := 1; ; n++ {
			if hooks.PageStart != nil {
				hooks.PageStart(n)
			}

			page, next, err := f.fetch(ctx, sp.Subdomain, desc.Endpoint, desc.ItemsKey, style, filter, cursor, n, hooks, logger)
			if err != nil {
				yield(nil, fmt.Errorf("page %d: %w", n, err))
				return
			}

			logger.Debug().
				Int("page", n).
				Int("records", len(page.Items)).
				Bool("last", page.Terminal()).
				Msg("Fetched page")

			pagesTotal.WithLabelValues(sp.ObjectType).Inc()
			recordsTotal.WithLabelValues(sp.ObjectType).Add(float64(len(page.Items)))

			if !yield(page, nil) || next == "" {
				return
			}
			cursor = next
		}
	}
}

func (f *Fetcher) fetch(
	ctx context.Context,
	subdomain, endpoint, itemsKey string,
	style Style,
	filter Filter,
	cursor string,
	n int,
	hooks Hooks,
	logger zerolog.Logger,
) (*Page, string, error) {
	req := client.Request{
		Subdomain: subdomain,
		Endpoint:  endpoint,
		Query:     style.Query(filter, cursor),
	}
	if hooks.Retry != nil {
		req.OnRetry = func(e client.RetryEvent) { hooks.Retry(n, e) }
	}

	start := time.Now()
	resp, err := f.getter.Get(ctx, req)
	pageDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", err
	}

	b, err := decodeBody(resp.Body, itemsKey)
	if err != nil {
		protocolErrorsTotal.WithLabelValues(endpoint).Inc()
		logger.Error().Err(err).Int("page", n).Msg("Malformed page")
		return nil, "", err
	}

	next, err := style.Next(filter, b, cursor)
	if err != nil {
		protocolErrorsTotal.WithLabelValues(endpoint).Inc()
		return nil, "", err
	}

	return &Page{
		Number:     n,
		Items:      b.items,
		NextCursor: next,
		RetryAfter: resp.RetryAfter,
		Attempts:   resp.Attempts,
		Throttles:  resp.Throttles,
	}, next, nil
}

// Items flattens the pages of sp into its records, in page order.
func (f *Fetcher) Items(ctx context.Context, sp split.Split) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for page, err := range f.Pages(ctx, sp, Hooks{}) {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
