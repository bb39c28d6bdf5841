package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	ctopics "github.com/radieske/betops-admin/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos binários
// Inclui API upstream, cache, conexões, tópicos, canais e portas
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "admin-console", "invalidation-relay"

	// API REST upstream da plataforma
	APIBaseURL     string
	APIToken       string // token de serviço; vazio = leituras ficam "not ready"
	RequestTimeout time.Duration
	Retries        int
	RetryBaseDelay time.Duration

	// Janelas de frescor do cache de consultas
	ListStaleTime    time.Duration
	DetailStaleTime  time.Duration
	OptionsStaleTime time.Duration
	RefreshInterval  time.Duration // 0 desliga o refresh periódico

	PostgresDSN  string // vazio desliga a auditoria de exportação
	RedisAddr    string // vazio desliga L2 e pub/sub
	KafkaBrokers string // "a:9092,b:9092"

	// Tópicos/canais
	TopicEntityChanged    string
	RedisInvalidationChan string

	ExportProfilesPath string

	// Portas do serviço atual
	HTTPPort    string // Porta pública (API do console)
	MetricsPort string // Porta exclusiva para /metrics e /healthz
}

// Load carrega .env (se existir), variáveis de ambiente e define defaults
// Resolve portas conforme o SERVICE_NAME
func Load() Config {
	// .env é opcional; em produção tudo vem do ambiente
	_ = godotenv.Load()

	svc := getEnv("SERVICE_NAME", "admin-console")
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8000/api"),
		APIToken:       getEnv("API_TOKEN", ""),
		RequestTimeout: getDuration("API_TIMEOUT", 30*time.Second),
		Retries:        getInt("API_RETRIES", 3),
		RetryBaseDelay: getDuration("API_RETRY_DELAY", time.Second),

		ListStaleTime:    getDuration("CACHE_LIST_STALE", 5*time.Minute),
		DetailStaleTime:  getDuration("CACHE_DETAIL_STALE", 5*time.Minute),
		OptionsStaleTime: getDuration("CACHE_OPTIONS_STALE", 2*time.Minute),
		RefreshInterval:  getDuration("CACHE_REFRESH_INTERVAL", 0),

		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		TopicEntityChanged:    getEnv("KAFKA_TOPIC_ENTITY_CHANGED", ctopics.EntityChanged),
		RedisInvalidationChan: getEnv("REDIS_INVALIDATION_CHANNEL", ctopics.CacheInvalidations),

		ExportProfilesPath: getEnv("EXPORT_PROFILES", ""),
	}

	// Define portas padrão para cada binário
	switch svc {
	case "invalidation-relay":
		cfg.HTTPPort = getEnv("HTTP_PORT_RELAY", "") // relay não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_RELAY", "9097")
	default:
		cfg.HTTPPort = getEnv("HTTP_PORT", "8090")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9095")
	}

	return cfg
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getDuration aceita "30s", "5m" ou milissegundos puros ("1500")
func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
