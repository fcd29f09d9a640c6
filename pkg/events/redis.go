package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/pkg/jobs"
)

// RedisPublisher hands events to a worker pool that publishes them on
// per-table Redis channels named "<prefix>:<table>".
type RedisPublisher struct {
	client *redis.Client
	prefix string
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewRedisPublisher constructs the publisher and its dispatch queue. Call
// Start before publishing and Stop on shutdown.
func NewRedisPublisher(client *redis.Client, prefix string, cfg jobs.QueueConfig) *RedisPublisher {
	if prefix == "" {
		prefix = "assetdesk"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &RedisPublisher{client: client, prefix: prefix, logger: cfg.Logger}
	p.queue = jobs.NewQueue("events", p.deliver, cfg)
	return p
}

// Start launches the dispatch workers.
func (p *RedisPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop drains pending events until ctx expires.
func (p *RedisPublisher) Stop(ctx context.Context) {
	p.queue.Stop(ctx)
}

// Channel returns the channel name used for a table.
func (p *RedisPublisher) Channel(table string) string {
	return fmt.Sprintf("%s:%s", p.prefix, table)
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(_ context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.Type, err)
	}
	return p.queue.Enqueue(jobs.Job{ID: evt.ID, Topic: evt.Table, Payload: payload})
}

func (p *RedisPublisher) deliver(ctx context.Context, job jobs.Job) error {
	if err := p.client.Publish(ctx, p.Channel(job.Topic), job.Payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", job.ID, err)
	}
	return nil
}
