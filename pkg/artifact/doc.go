// Package artifact publishes the output schema of each object type of a
// multi-object run, so that a downstream fan-out consumer can split the
// combined record stream back into one table per object type.
//
// Every schema is published under the name "multisink.<table key>", for
// example "multisink.ticket_metrics".
//
// # Directory
//
//	pub := artifact.NewFilePublisher("out/schemas")
//	names, err := pub.Publish(ctx, runID, coordinator.Artifacts())
//
// writes one Avro schema file per table: out/schemas/multisink.ticket_metrics.avsc.
//
// # Redis
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	pub := artifact.NewRedisPublisher(redisClient, "zendesk", 24*time.Hour)
//	names, err := pub.Publish(ctx, runID, coordinator.Artifacts())
//
//	// Consumer side
//	entry, err := pub.Get(ctx, "ticket_metrics")
//	if errors.Is(err, artifact.ErrNotFound) {
//		// Nothing published for this table
//	}
//
// Redis keys follow "zendesk:<reference>:multisink.<table key>" and expire
// after the configured TTL.
//
// # Metrics
//
//   - zendesk_artifacts_published_total{backend} - Schemas published
//   - zendesk_artifact_errors_total{operation} - Publish and lookup failures
package artifact
