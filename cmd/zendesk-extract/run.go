package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/artifact"
	"github.com/prashantcloudsufi/zendesk/pkg/client"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
	"github.com/prashantcloudsufi/zendesk/pkg/extract"
	"github.com/prashantcloudsufi/zendesk/pkg/logging"
	"github.com/prashantcloudsufi/zendesk/pkg/metrics"
	"github.com/prashantcloudsufi/zendesk/pkg/ratelimit"
	"github.com/prashantcloudsufi/zendesk/pkg/sink"
	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

type runOptions struct {
	outputDir   string
	format      string
	splitsFile  string
	metricsAddr string
	artifacts   string
	artifactTTL time.Duration
	stateTTL    time.Duration
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract every planned split",
		Long: `Run extracts every split of the configuration, or of a plan written by "plan",
and writes one file per table into the output directory. In multi mode each
table's schema is published as multisink.<table> for downstream consumers.

A failing split does not stop the others; the command exits non-zero if any
split failed.

Example:
  zendesk-extract run -c zendesk.yaml --output-dir out --format avro`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := sink.ParseFormat(ro.format)
			if err != nil {
				return err
			}
			if ro.artifacts != "file" && ro.artifacts != "redis" {
				return fmt.Errorf("unknown artifact backend %q (want file or redis)", ro.artifacts)
			}

			cfg, err := opts.loadValid()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runExtraction(ctx, cmd.OutOrStdout(), opts.logger, cfg, format, ro)
		},
	}

	cmd.Flags().StringVarP(&ro.outputDir, "output-dir", "o", "out", "Directory for output files")
	cmd.Flags().StringVar(&ro.format, "format", string(sink.FormatJSONL), "Output format (jsonl, avro)")
	cmd.Flags().StringVar(&ro.splitsFile, "splits", "", "Run the splits of a plan file instead of planning from the configuration")
	cmd.Flags().StringVar(&ro.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().StringVar(&ro.artifacts, "artifacts", "file", "Where to publish schema artifacts (file, redis)")
	cmd.Flags().DurationVar(&ro.artifactTTL, "artifact-ttl", 24*time.Hour, "Expiry of schema artifacts stored in Redis")
	cmd.Flags().DurationVar(&ro.stateTTL, "rate-limit-ttl", time.Hour, "Expiry of rate limit state stored in Redis")
	return cmd
}

func runExtraction(ctx context.Context, out io.Writer, logger zerolog.Logger, cfg config.Config, format sink.Format, ro *runOptions) error {
	if ro.metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, ro.metricsAddr, logger); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	var rdb *redis.Client
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		store = ratelimit.NewRedisStore(rdb, ro.stateTTL)
	}
	if ro.artifacts == "redis" && rdb == nil {
		return errors.New("redis artifacts need redis_addr to be configured")
	}

	tracker := ratelimit.NewTracker(store, cfg.ShareThrottle, logger)
	c, err := client.New(client.ConfigFrom(cfg, tracker))
	if err != nil {
		return err
	}
	defer c.Close()

	coord, err := coordinator(cfg, c, logger, ro.splitsFile)
	if err != nil {
		return err
	}
	logger = logging.ForRun(logger, coord.RunID())

	if coord.Multi() {
		var pub artifact.Publisher = artifact.NewFilePublisher(filepath.Join(ro.outputDir, "schemas"))
		if ro.artifacts == "redis" {
			pub = artifact.NewRedisPublisher(rdb, cfg.ReferenceName, ro.artifactTTL)
		}
		names, err := pub.Publish(ctx, coord.RunID(), coord.Artifacts())
		if err != nil {
			return fmt.Errorf("publish schemas: %w", err)
		}
		logger.Info().Strs("artifacts", names).Msg("Schemas published")
	}

	sk, err := sink.New(format, ro.outputDir, coord.Artifacts())
	if err != nil {
		return err
	}

	report, runErr := coord.Run(ctx, func(it extract.Item) error {
		return sk.Write(it.Record)
	})
	if err := sk.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	printReport(out, report, sk)
	logger.Info().
		Int("splits", len(report.Splits)).
		Int("succeeded", report.Succeeded()).
		Int("failed", len(report.Failed())).
		Int("records", report.Records()).
		Dur("duration", report.Finished.Sub(report.Started)).
		Msg("Extraction finished")
	return runErr
}

// coordinator builds the run from the configuration or from a plan file.
func coordinator(cfg config.Config, getter *client.Client, logger zerolog.Logger, splitsFile string) (*extract.Coordinator, error) {
	if splitsFile == "" {
		return extract.Build(cfg, getter, logger)
	}

	data, err := os.ReadFile(splitsFile)
	if err != nil {
		return nil, fmt.Errorf("read splits: %w", err)
	}
	splits, err := split.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return extract.FromSplits(cfg, splits, getter, logger)
}

func printReport(out io.Writer, report *extract.Report, sk *sink.Sink) {
	for _, st := range report.Splits {
		line := fmt.Sprintf("%-40s %-8s pages=%d records=%d attempts=%d",
			st.Split.ID(), st.State, st.Pages, st.Records, st.Attempts)
		if st.Err != nil {
			line += " error=" + st.Err.Error()
		}
		fmt.Fprintln(out, line)
	}
	for _, table := range sk.Tables() {
		fmt.Fprintf(out, "wrote %s (%d records)\n", sk.Path(table), sk.Counts()[table])
	}
	fmt.Fprintf(out, "run %s: %d/%d splits succeeded, %d records\n",
		report.RunID, report.Succeeded(), len(report.Splits), report.Records())
}
