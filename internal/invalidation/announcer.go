package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radieske/betops-admin/internal/shared/kafka"
	"github.com/radieske/betops-admin/pkg/contracts/events"
)

// Announcer publica no Kafka as mudanças feitas pelo próprio console,
// para que o relay avise as outras réplicas.
type Announcer struct {
	Writer kafka.MessageWriter
	Source string // id desta réplica
	Now    func() time.Time
}

func NewAnnouncer(w kafka.MessageWriter, source string) *Announcer {
	return &Announcer{Writer: w, Source: source, Now: time.Now}
}

func (a *Announcer) Announce(ctx context.Context, entity, action string) error {
	b, err := json.Marshal(events.EntityChanged{
		Entity: entity,
		Action: action,
		Source: a.Source,
		Ts:     a.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode entity_changed: %w", err)
	}
	if err := kafka.WriteJSON(ctx, a.Writer, entity, b); err != nil {
		return fmt.Errorf("announce %s: %w", entity, err)
	}
	return nil
}
