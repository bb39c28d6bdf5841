package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/invalidation"
	"github.com/radieske/betops-admin/internal/shared/cache"
	"github.com/radieske/betops-admin/internal/shared/config"
	"github.com/radieske/betops-admin/internal/shared/kafka"
	"github.com/radieske/betops-admin/internal/shared/logger"
	"github.com/radieske/betops-admin/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// consumer group próprio: cada mudança é repassada uma única vez
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicEntityChanged, "invalidation-relay")
	defer reader.Close()

	// Métricas Prometheus do relay
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "betops_relay_messages_consumed_total", Help: "mensagens entity_changed consumidas"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "betops_relay_invalidations_published_total", Help: "invalidações publicadas por entidade"}, []string{"entity"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "betops_relay_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, published, errorsBy)

	relay := &invalidation.Relay{
		Log:         log,
		Reader:      reader,
		Publisher:   invalidation.NewRedisPublisher(redisClient),
		Channel:     cfg.RedisInvalidationChan,
		OnConsumed:  func() { consumed.Inc() },
		OnPublished: func(entity string) { published.WithLabelValues(entity).Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", msrv.Addr))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("invalidation-relay started",
		zap.String("topic", cfg.TopicEntityChanged),
		zap.String("channel", cfg.RedisInvalidationChan),
	)
	if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("relay stopped with error", zap.Error(err))
	}
	_ = msrv.Close()
	log.Info("invalidation-relay stopped")
}
