package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	splitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_splits_total",
		Help: "Finished splits by object type and final state",
	}, []string{"object", "state"})

	splitsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zendesk_splits_in_progress",
		Help: "Splits currently being extracted",
	})

	splitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zendesk_split_duration_seconds",
		Help:    "Split extraction time by object type",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 3600},
	}, []string{"object"})

	recordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_records_emitted_total",
		Help: "Structured records emitted by object type",
	}, []string{"object"})

	schemaViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_schema_violations_total",
		Help: "Raw records rejected by the mapper by object type",
	}, []string{"object"})
)
