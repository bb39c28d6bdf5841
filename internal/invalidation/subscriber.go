package invalidation

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/pkg/contracts/events"
)

// Handler recebe cada invalidação vinda de outra origem
type Handler func(inv events.Invalidation)

// StartSubscriber escuta o canal em uma goroutine até o ctx acabar.
// Mensagens com Origin == self são o eco da própria réplica e são ignoradas.
func StartSubscriber(ctx context.Context, r *redis.Client, channel, self string, log *zap.Logger, handle Handler) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				if err := Dispatch([]byte(msg.Payload), self, handle); err != nil {
					log.Warn("invalidation subscriber unmarshal error", zap.Error(err))
				}
			}
		}
	}()
}

// Dispatch decodifica um payload e chama handle, exceto para o próprio eco
func Dispatch(payload []byte, self string, handle Handler) error {
	var inv events.Invalidation
	if err := json.Unmarshal(payload, &inv); err != nil {
		return err
	}
	if self != "" && inv.Origin == self {
		return nil
	}
	handle(inv)
	return nil
}
