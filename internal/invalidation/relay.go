package invalidation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo relay
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Relay consome entity_changed do Kafka e republica como invalidação no Redis.
// Callbacks de métricas são opcionais.
type Relay struct {
	Log       *zap.Logger
	Reader    MessageReader
	Publisher Publisher
	Channel   string

	OnConsumed  func()
	OnPublished func(entity string)
	OnError     func(stage string)

	// espera após falha de leitura
	Backoff time.Duration
}

// Run bloqueia até o ctx ser cancelado
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		m, err := r.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Warn("kafka read failed", zap.Error(err))
			r.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		if r.OnConsumed != nil {
			r.OnConsumed()
		}
		r.handle(ctx, m.Value)
	}
}

func (r *Relay) handle(ctx context.Context, value []byte) {
	var ev events.EntityChanged
	if err := json.Unmarshal(value, &ev); err != nil {
		r.Log.Warn("invalid entity_changed message", zap.Error(err))
		r.fail("decode")
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	// a réplica que originou a mudança ignora o próprio eco
	origin := ev.Source
	if origin == "" {
		origin = "relay"
	}
	inv := events.Invalidation{Entity: ev.Entity, Origin: origin}
	if err := PublishInvalidation(pctx, r.Publisher, r.Channel, inv); err != nil {
		r.Log.Warn("invalidation publish failed", zap.String("entity", ev.Entity), zap.Error(err))
		r.fail("publish")
		return
	}
	r.Log.Debug("invalidation relayed",
		zap.String("entity", ev.Entity),
		zap.String("id", ev.ID),
		zap.String("action", ev.Action),
	)
	if r.OnPublished != nil {
		r.OnPublished(ev.Entity)
	}
}

func (r *Relay) fail(stage string) {
	if r.OnError != nil {
		r.OnError(stage)
	}
}
