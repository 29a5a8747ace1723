// Package metrics exposes the extractor's Prometheus metrics.
// All metrics are defined in their respective packages (client, ratelimit,
// pagination, extract, sink, artifact) and registered via promauto; this
// package serves them and documents the catalogue.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the registerer every package's metrics land in.
var Registry = prometheus.DefaultRegisterer

// Path is where metrics are served.
const Path = "/metrics"

// Handler returns the HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes Path on addr until ctx is done. It returns nil after a clean
// shutdown.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - zendesk_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - zendesk_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - zendesk_errors_total{class} (Counter): Errors by class (auth, not_found, client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - zendesk_retries_total{error_class} (Counter): Retry attempts by error class
//   - zendesk_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - zendesk_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retry budget
//
// Rate Limit Metrics (pkg/ratelimit):
//   - zendesk_rate_limit_remaining{subdomain} (Gauge): X-Rate-Limit-Remaining of the last response
//   - zendesk_rate_limit_pauses_total{subdomain} (Counter): Shared pauses started after a 429
//   - zendesk_rate_limit_throttles_total{subdomain} (Counter): Requests delayed by the tracker
//
// Pagination Metrics (pkg/pagination):
//   - zendesk_pages_fetched_total{object} (Counter): Pages fetched
//   - zendesk_records_fetched_total{object} (Counter): Raw records fetched
//   - zendesk_page_fetch_duration_seconds{endpoint} (Histogram): Page fetch time including retries
//   - zendesk_protocol_errors_total{endpoint} (Counter): Unpaginatable responses
//
// Extraction Metrics (pkg/extract):
//   - zendesk_splits_total{object, state} (Counter): Finished splits by final state
//   - zendesk_splits_in_progress (Gauge): Splits being extracted
//   - zendesk_split_duration_seconds{object} (Histogram): Split extraction time
//   - zendesk_records_emitted_total{object} (Counter): Structured records emitted
//   - zendesk_schema_violations_total{object} (Counter): Raw records rejected by the mapper
//
// Output Metrics (pkg/sink, pkg/artifact):
//   - zendesk_sink_records_written_total{table, format} (Counter): Records written to files
//   - zendesk_sink_errors_total{format} (Counter): Record encoding errors
//   - zendesk_artifacts_published_total{backend} (Counter): Schema artifacts published
//   - zendesk_artifact_errors_total{operation} (Counter): Artifact operation errors
//
// Example Prometheus Queries:
//
//   # Failed splits
//   sum by (object) (zendesk_splits_total{state="failed"})
//
//   # Throttling rate per subdomain
//   rate(zendesk_rate_limit_pauses_total[5m])
//
//   # Records per second
//   sum(rate(zendesk_records_emitted_total[1m]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(zendesk_page_fetch_duration_seconds_bucket[5m]))
