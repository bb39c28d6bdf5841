// Package invalidation leva eventos de mudança do backend até os caches do console:
// Kafka (entity_changed) → relay → Redis Pub/Sub → réplicas do console.
package invalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betops-admin/pkg/contracts/events"
)

// Publisher publica um payload num canal
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publica via Redis Pub/Sub
type RedisPublisher struct {
	r *redis.Client
}

func NewRedisPublisher(r *redis.Client) *RedisPublisher {
	return &RedisPublisher{r: r}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.r.Publish(ctx, channel, payload).Err()
}

// PublishInvalidation serializa e publica uma invalidação
func PublishInvalidation(ctx context.Context, p Publisher, channel string, inv events.Invalidation) error {
	b, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := p.Publish(ctx, channel, b); err != nil {
		return fmt.Errorf("publish invalidation %q: %w", inv.Entity, err)
	}
	return nil
}
