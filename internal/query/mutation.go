package query

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

// GenericFailure é a mensagem quando o servidor não explica o erro
const GenericFailure = "Something went wrong. Please try again."

// Notification é o aviso transitório mostrado após uma mutação
type Notification struct {
	Level   string `json:"level"` // "success" | "error"
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// Notifier entrega avisos à tela (toast, websocket, log...)
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapta uma função a Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// MutationSpec descreve o que invalidar quando a mutação der certo
type MutationSpec struct {
	Entity   string
	Action   string   // "create" | "update" | "delete" | "toggle"
	Related  []string // outras raízes afetadas
	Notifier Notifier
	Success  string // mensagem de sucesso; vazio = sem aviso
}

// Mutate executa fn; sucesso invalida a raiz da entidade e as relacionadas,
// falha só notifica e não toca no cache.
func Mutate[T any](ctx context.Context, c *Cache, m MutationSpec, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		msg := FailureMessage(err)
		c.log.Warn("mutation failed",
			zap.String("entity", m.Entity),
			zap.String("action", m.Action),
			zap.Error(err),
		)
		notify(m.Notifier, Notification{Level: "error", Entity: m.Entity, Action: m.Action, Message: msg})
		return v, err
	}

	c.Invalidate(m.Entity)
	for _, r := range m.Related {
		if r != m.Entity {
			c.Invalidate(r)
		}
	}
	if m.Success != "" {
		notify(m.Notifier, Notification{Level: "success", Entity: m.Entity, Action: m.Action, Message: m.Success})
	}
	return v, nil
}

// FailureMessage escolhe a mensagem mostrada ao usuário
func FailureMessage(err error) string {
	var ve *dto.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if ae, ok := apiclient.AsAPIError(err); ok && ae.Message != "" {
		return ae.Message
	}
	return GenericFailure
}

func notify(n Notifier, msg Notification) {
	if n != nil {
		n.Notify(msg)
	}
}
