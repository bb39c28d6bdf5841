package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/shared/logger"
)

const (
	// Wildcard assina todas as entidades
	Wildcard     = "*"
	writeTimeout = 5 * time.Second
)

// client serializa as escritas: o gorilla aceita um único writer por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(b)
}

// Hub mantém os dashboards conectados e as assinaturas por entidade.
// Conexão nova assina "*" até pedir entidades específicas.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// entidade -> conexões
	subs map[string]map[*client]struct{}

	// OnRefresh é chamado quando o dashboard avisa foco/visibilidade; devolve entradas invalidadas
	OnRefresh func(reason string) int
	log       *zap.Logger
}

func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
		log:      logger.Nop(log),
	}
}

// HandleWS atende uma conexão até o cliente desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	h.subscribe(c, Wildcard)
	explicit := false

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.Entity == "" {
				continue
			}
			if !explicit && msg.Entity != Wildcard {
				h.unsubscribe(c, Wildcard)
				explicit = true
			}
			h.subscribe(c, msg.Entity)
		case "unsubscribe":
			h.unsubscribe(c, msg.Entity)
		case "ping":
			_ = c.writeJSON(ServerMsg{Type: "pong"})
		case "focus", "visible":
			n := 0
			if h.OnRefresh != nil {
				n = h.OnRefresh(msg.Type)
			}
			_ = c.writeJSON(ServerMsg{Type: "refreshed", Entries: n})
		}
	}

	h.mu.Lock()
	for key, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(c *client, entity string) {
	h.mu.Lock()
	if _, ok := h.subs[entity]; !ok {
		h.subs[entity] = make(map[*client]struct{})
	}
	h.subs[entity][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(c *client, entity string) {
	h.mu.Lock()
	if m, ok := h.subs[entity]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, entity)
		}
	}
	h.mu.Unlock()
}

// Broadcast avisa os assinantes da entidade (e os de "*") que o cache mudou.
// entity vazio vai para todas as conexões.
func (h *Hub) Broadcast(entity string) int {
	h.mu.RLock()
	targets := map[*client]struct{}{}
	for key, set := range h.subs {
		if entity == "" || key == entity || key == Wildcard {
			for c := range set {
				targets[c] = struct{}{}
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	b, _ := json.Marshal(ServerMsg{Type: "invalidate", Entity: entity})
	sent := 0
	for c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// Clients devolve o número de conexões distintas
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[*client]struct{}{}
	for _, set := range h.subs {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}
