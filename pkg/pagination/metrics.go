package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_pages_fetched_total",
		Help: "Total pages fetched by object type",
	}, []string{"object"})

	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_records_fetched_total",
		Help: "Total raw records fetched by object type",
	}, []string{"object"})

	pageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zendesk_page_fetch_duration_seconds",
		Help:    "Time to fetch one page including retries, by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"endpoint"})

	protocolErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_protocol_errors_total",
		Help: "Responses that could not be paginated, by endpoint",
	}, []string{"endpoint"})
)
