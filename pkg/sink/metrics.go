package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zendesk_sink_records_written_total",
			Help: "Total number of records written to output files",
		},
		[]string{"table", "format"},
	)

	sinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zendesk_sink_errors_total",
			Help: "Total number of record encoding errors",
		},
		[]string{"format"},
	)
)
