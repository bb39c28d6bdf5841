package events

import "time"

// Evento publicado no tópico "entity_changed" quando uma entidade muda no backend
type EntityChanged struct {
	Entity string    `json:"entity"` // "games", "brands", ...
	ID     string    `json:"id,omitempty"`
	Action string    `json:"action"` // "created" | "updated" | "deleted" | "status"
	Source string    `json:"source,omitempty"`
	Ts     time.Time `json:"ts"`
}

// Invalidation é o payload repassado via Redis Pub/Sub para as réplicas do console.
// Entity vazio significa invalidar tudo.
type Invalidation struct {
	Entity string `json:"entity,omitempty"`
	Origin string `json:"origin,omitempty"` // id da réplica que originou, para ignorar o eco
}
