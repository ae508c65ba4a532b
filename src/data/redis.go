package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const streamEvents = "challengebot.events"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishEvent appends a lifecycle event to the observability stream.
// Consumers (dashboards, audit tooling) read it with XREAD.
func PublishEvent(ctx context.Context, rdb *redis.Client, event string, fields map[string]interface{}) error {
	values := map[string]interface{}{"event": event}
	for k, v := range fields {
		values[k] = v
	}
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: values,
	}).Result()
	return err
}

// Events adapts the redis stream to the services' publisher interface.
type Events struct {
	rdb *redis.Client
}

func NewEvents(rdb *redis.Client) *Events { return &Events{rdb: rdb} }

func (e *Events) Publish(ctx context.Context, event string, fields map[string]interface{}) error {
	return PublishEvent(ctx, e.rdb, event, fields)
}
