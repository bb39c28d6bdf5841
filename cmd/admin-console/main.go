package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/apiclient"
	httpapi "github.com/radieske/betops-admin/internal/console/http"
	"github.com/radieske/betops-admin/internal/console/ws"
	"github.com/radieske/betops-admin/internal/export"
	"github.com/radieske/betops-admin/internal/invalidation"
	"github.com/radieske/betops-admin/internal/query"
	"github.com/radieske/betops-admin/internal/shared/cache"
	"github.com/radieske/betops-admin/internal/shared/config"
	"github.com/radieske/betops-admin/internal/shared/db"
	"github.com/radieske/betops-admin/internal/shared/kafka"
	"github.com/radieske/betops-admin/internal/shared/logger"
	"github.com/radieske/betops-admin/internal/shared/metrics"
	"github.com/radieske/betops-admin/pkg/contracts/events"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	replica := cfg.ServiceName + "-" + uuid.NewString()[:8]
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env), zap.String("replica", replica))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewConsole(prometheus.DefaultRegisterer)

	// cliente da API upstream
	tokens := apiclient.NewTokenStore(cfg.APIToken)
	client := apiclient.New(cfg.APIBaseURL, tokens, log)
	client.Timeout = cfg.RequestTimeout
	client.Retries = cfg.Retries
	client.BaseDelay = cfg.RetryBaseDelay
	client.OnRequest = m.OnRequest
	client.OnRetry = m.OnRetry
	if cfg.APIToken == "" {
		log.Warn("API_TOKEN empty: reads will stay not ready until a token is set")
	}

	// Redis é opcional: sem ele não há L2 nem invalidação entre réplicas
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, running without shared cache", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info("redis connected")
		}
	}

	opts := []query.Option{query.WithHooks(query.Hooks{
		OnHit:        m.OnHit,
		OnMiss:       m.OnMiss,
		OnInvalidate: m.OnInvalidate,
	})}
	if rdb != nil {
		opts = append(opts, query.WithStore(query.NewRedisStore(rdb, cfg.ListStaleTime)))
	}
	qc := query.New(tokens, log, opts...)
	qc.Init(ctx)
	defer qc.Close()

	// Postgres é opcional: só guarda a auditoria das exportações
	var (
		pg    *sql.DB
		audit export.Recorder = export.NopRecorder{}
	)
	if cfg.PostgresDSN != "" {
		pg, err = db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		repo := export.NewPostgres(pg)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("export audit schema", zap.Error(err))
		}
		audit = repo
		log.Info("postgres connected")
	}

	profiles, err := export.LoadProfiles(cfg.ExportProfilesPath)
	if err != nil {
		log.Fatal("export profiles", zap.Error(err))
	}
	exporter := export.NewExporter(profiles, audit, log)
	exporter.OnExport = m.OnExport

	hub := ws.NewHub(func(*http.Request) bool { return true }, log)

	api := httpapi.NewConsole(httpapi.Deps{
		Client:   client,
		Cache:    qc,
		Exporter: exporter,
		Hub:      hub,
		Notifier: query.NotifierFunc(func(n query.Notification) {
			log.Info("mutation notification",
				zap.String("level", n.Level),
				zap.String("entity", n.Entity),
				zap.String("action", n.Action),
				zap.String("message", n.Message),
			)
		}),
		Freshness: query.Freshness{List: cfg.ListStaleTime, Detail: cfg.DetailStaleTime, Options: cfg.OptionsStaleTime},
		Log:       log,
	})
	hub.OnRefresh = api.Manager.RefreshAll

	// mudanças locais são anunciadas no Kafka; o relay devolve para as outras réplicas
	var announcer *invalidation.Announcer
	if cfg.KafkaBrokers != "" {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEntityChanged)
		defer writer.Close()
		announcer = invalidation.NewAnnouncer(writer, replica)
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicEntityChanged))
	}

	qc.OnInvalidate(func(entity, source string) {
		hub.Broadcast(entity)
		if source != "local" || announcer == nil {
			return
		}
		go func() {
			actx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := announcer.Announce(actx, entity, "invalidated"); err != nil {
				log.Warn("entity change announce failed", zap.String("entity", entity), zap.Error(err))
			}
		}()
	})

	if rdb != nil {
		invalidation.StartSubscriber(ctx, rdb, cfg.RedisInvalidationChan, replica, log, func(inv events.Invalidation) {
			if inv.Entity == "" {
				qc.InvalidateAll("remote")
				return
			}
			qc.InvalidateFrom(inv.Entity, "remote")
		})
		log.Info("invalidation subscriber started", zap.String("channel", cfg.RedisInvalidationChan))
	}

	go api.Manager.Run(ctx, cfg.RefreshInterval)

	// Servidor HTTP para métricas e health check
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if pg != nil {
			if err := pg.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", msrv.Addr))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("admin console listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	_ = msrv.Shutdown(sctx)
	log.Info("admin console stopped")
}
