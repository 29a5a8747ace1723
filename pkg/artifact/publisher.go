package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

var (
	// ErrNotFound indicates no artifact is published for the table.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidEntry indicates a stored artifact could not be decoded.
	ErrInvalidEntry = errors.New("invalid artifact entry")
)

// Publisher publishes a run's schemas, keyed by table key. It returns the
// artifact names written, ordered by table key.
type Publisher interface {
	Publish(ctx context.Context, runID string, artifacts map[string]*schema.Schema) ([]string, error)
}

// FilePublisher writes one .avsc file per table into a directory.
type FilePublisher struct {
	dir string
}

// NewFilePublisher creates a publisher writing into dir, which is created if
// needed.
func NewFilePublisher(dir string) *FilePublisher {
	return &FilePublisher{dir: dir}
}

// Path returns the file an artifact name is written to.
func (p *FilePublisher) Path(name string) string {
	return filepath.Join(p.dir, name+".avsc")
}

// Publish implements Publisher.
func (p *FilePublisher) Publish(ctx context.Context, runID string, artifacts map[string]*schema.Schema) ([]string, error) {
	list, err := entries(runID, artifacts, time.Now().UTC())
	if err != nil {
		artifactErrors.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("encode schemas: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		artifactErrors.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	names := make([]string, 0, len(list))
	for _, e := range list {
		if err := ctx.Err(); err != nil {
			return names, err
		}
		if err := os.WriteFile(p.Path(e.Name), e.Schema, 0o644); err != nil {
			artifactErrors.WithLabelValues("publish").Inc()
			return names, fmt.Errorf("write %s: %w", e.Name, err)
		}
		artifactsPublished.WithLabelValues("file").Inc()
		names = append(names, e.Name)
	}
	return names, nil
}

// RedisPublisher stores artifacts as JSON entries in Redis.
type RedisPublisher struct {
	redis     *redis.Client
	reference string
	ttl       time.Duration
}

// NewRedisPublisher creates a publisher namespaced by reference. A ttl of 0
// keeps entries until overwritten.
func NewRedisPublisher(redisClient *redis.Client, reference string, ttl time.Duration) *RedisPublisher {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisPublisher{redis: redisClient, reference: reference, ttl: ttl}
}

// Key returns the Redis key of a table's artifact.
func (p *RedisPublisher) Key(table string) string {
	return fmt.Sprintf("zendesk:%s:%s", p.reference, Name(table))
}

// Publish implements Publisher. All entries are written in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, runID string, artifacts map[string]*schema.Schema) ([]string, error) {
	list, err := entries(runID, artifacts, time.Now().UTC())
	if err != nil {
		artifactErrors.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("encode schemas: %w", err)
	}

	pipe := p.redis.TxPipeline()
	names := make([]string, 0, len(list))
	for _, e := range list {
		data, err := gojson.Marshal(e)
		if err != nil {
			artifactErrors.WithLabelValues("publish").Inc()
			return nil, fmt.Errorf("marshal %s: %w", e.Name, err)
		}
		pipe.Set(ctx, p.Key(e.Table), data, p.ttl)
		names = append(names, e.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		artifactErrors.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("redis publish: %w", err)
	}

	artifactsPublished.WithLabelValues("redis").Add(float64(len(names)))
	return names, nil
}

// Get retrieves the artifact of table.
// Returns ErrNotFound if nothing is published or the entry expired.
func (p *RedisPublisher) Get(ctx context.Context, table string) (*Entry, error) {
	data, err := p.redis.Get(ctx, p.Key(table)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, Name(table))
		}
		artifactErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := gojson.Unmarshal(data, &entry); err != nil {
		artifactErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Delete removes the artifact of table.
func (p *RedisPublisher) Delete(ctx context.Context, table string) error {
	if err := p.redis.Del(ctx, p.Key(table)).Err(); err != nil {
		artifactErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
