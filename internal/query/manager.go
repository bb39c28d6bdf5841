package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/shared/logger"
)

// Manager agrega a invalidação de todas as entidades.
// É acionado em foco/visibilidade da tela, timer periódico e eventos remotos.
type Manager struct {
	cache *Cache
	log   *zap.Logger
}

func NewManager(c *Cache, log *zap.Logger) *Manager {
	return &Manager{cache: c, log: logger.Nop(log)}
}

// RefreshAll invalida todas as raízes; a próxima leitura de cada tela refaz a busca
func (m *Manager) RefreshAll(reason string) int {
	n := m.cache.InvalidateAll("refresh")
	m.log.Debug("cache refresh", zap.String("reason", reason), zap.Int("entries", n))
	return n
}

// OnFocus / OnVisible são os gatilhos vindos do dashboard
func (m *Manager) OnFocus() int   { return m.RefreshAll("focus") }
func (m *Manager) OnVisible() int { return m.RefreshAll("visibility") }

// Run dispara RefreshAll a cada interval até o ctx acabar; interval <= 0 não faz nada
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.RefreshAll("interval")
		}
	}
}

// Logout limpa o cache inteiro
func (m *Manager) Logout() { m.cache.Clear() }

// Login troca a sessão; nada lido com o token anterior sobrevive
func (m *Manager) Login() { m.cache.Clear() }
