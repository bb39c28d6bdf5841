package topics

const (
	// Eventos de mudança publicados pelo backend da plataforma
	EntityChanged = "entity_changed"

	// Canal Redis Pub/Sub consumido pelas réplicas do console
	CacheInvalidations = "admin_cache_invalidations"
)
