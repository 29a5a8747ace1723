package artifact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	artifactsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zendesk_artifacts_published_total",
			Help: "Total number of schema artifacts published",
		},
		[]string{"backend"}, // "file", "redis"
	)

	artifactErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zendesk_artifact_errors_total",
			Help: "Total number of artifact operation errors",
		},
		[]string{"operation"}, // "publish", "get", "delete"
	)
)
