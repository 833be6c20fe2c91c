// Command server runs the identity document node: the versioned document
// store and its HTTP API, the read-side resolver, and the audit trail with
// its Kafka outbox worker. main wires dependencies and owns their lifecycle;
// business logic lives in the internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/0xshikhar/sapphire-did-sub000/internal/agent"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/handler"
	diddocMetrics "github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/resolver"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/service"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/store"
	jwttoken "github.com/0xshikhar/sapphire-did-sub000/internal/jwt_token"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/config"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/httpserver"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/logger"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/postgres"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/redis"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit/kafka"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit/publisher"
	auditMemory "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit/store/memory"
	auditPostgres "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit/store/postgres"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit/worker"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/httputil"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		versions     service.Store
		versionReads resolver.Store
		pool         *pgxpool.Pool
		auditStore   audit.Store
		auditOutbox  worker.Outbox
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pgStore := store.NewPostgres(pool)
		versions, versionReads = pgStore, pgStore

		auditDB, err := postgres.OpenAuditDB(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer auditDB.Close()
		pgAudit := auditPostgres.New(auditDB)
		auditStore, auditOutbox = pgAudit, pgAudit

		log.Info("postgres connected")
	} else {
		log.Warn("no DATABASE_URL configured, storing documents in memory")
		memStore := store.NewInMemory()
		versions, versionReads = memStore, memStore
		auditStore = auditMemory.NewInMemoryStore()
	}

	// Identity agent: remote over HTTP when configured, in-process otherwise.
	var (
		minter   service.IdentityMinter
		external resolver.ExternalResolver
	)
	if cfg.Agent.BaseURL != "" {
		client := agent.NewClient(cfg.Agent.BaseURL,
			agent.WithHTTPClient(&http.Client{Timeout: cfg.Agent.Timeout}),
			agent.WithClientLogger(log),
		)
		minter, external = client, client
	} else {
		log.Warn("no AGENT_BASE_URL configured, minting identities in process")
		dev := agent.NewDevAgent()
		minter, external = dev, dev
	}

	docMetrics := diddocMetrics.New()
	httpMetrics := metrics.New()

	svc := diddoc.NewService(versions, minter,
		service.WithLogger(log),
		service.WithMetrics(docMetrics),
	)

	// Read cache is optional; without Redis every resolve hits the store.
	resolverOpts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithMetrics(docMetrics),
	}
	var invalidator handler.CacheInvalidator
	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		cache := resolver.NewCache(rdb.Client, resolver.WithTTL(cfg.ResolveCacheTTL))
		resolverOpts = append(resolverOpts, resolver.WithCache(cache))
		invalidator = cache
		log.Info("redis read cache enabled", "ttl", cfg.ResolveCacheTTL)
	}
	reads := diddoc.NewResolver(versionReads, external, resolverOpts...)

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithSampler(audit.NewSampler(cfg.AuditOpsSampleRate)),
		publisher.WithDroppedCounter(docMetrics.AuditEventsDropped),
	)
	defer auditPublisher.Close()

	// Kafka delivery drains the Postgres outbox in the background.
	var auditWorker *worker.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		if err := producer.Ping(ctx); err != nil {
			log.Error("kafka brokers unreachable", "error", err)
			os.Exit(1)
		}
		auditWorker = worker.New(auditOutbox, producer, worker.WithLogger(log))
		log.Info("audit outbox worker enabled", "topic", cfg.Kafka.Topic)
	}

	tokens, err := jwttoken.NewJWTService(cfg.JWT)
	if err != nil {
		log.Error("failed to build token service", "error", err)
		os.Exit(1)
	}

	handlerOpts := []handler.Option{
		handler.WithAuditPublisher(auditPublisher),
		handler.WithRequestTimeout(cfg.HTTP.RequestTimeout),
	}
	if invalidator != nil {
		handlerOpts = append(handlerOpts, handler.WithCacheInvalidator(invalidator))
	}
	h := diddoc.NewHandler(svc, reads, tokens, log, httpMetrics, handlerOpts...)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(pool, rdb))
	router.Handle("/metrics", promhttp.Handler())
	h.Register(router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := httpserver.New(cfg.HTTP, corsHandler.Handler(router))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTP.Addr)
		return httpserver.Run(ctx, srv)
	})
	if auditWorker != nil {
		g.Go(func() error {
			return auditWorker.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// healthHandler reports dependency health. Absent dependencies are simply
// not checked; a node on the in-memory store is healthy with no checks.
func healthHandler(pool *pgxpool.Pool, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				checks["postgres"] = "unavailable"
				healthy = false
			} else {
				checks["postgres"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Health(ctx); err != nil {
				checks["redis"] = "unavailable"
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": state, "checks": checks})
	}
}
