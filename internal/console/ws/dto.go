package ws

// ClientMsg é uma mensagem recebida do dashboard
// Type: subscribe | unsubscribe | ping | focus | visible
type ClientMsg struct {
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"` // subscribe/unsubscribe; "*" = todas
}

// ServerMsg é enviada aos dashboards
// Type: invalidate | pong | refreshed
type ServerMsg struct {
	Type    string `json:"type"`
	Entity  string `json:"entity,omitempty"` // vazio em invalidate = tudo
	Entries int    `json:"entries,omitempty"`
}
