package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	// PostgreSQL Driver
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	// Interne
	"github.com/neon-kni6ht/social-media-api/config"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/primary/events"
	grpc_adapter "github.com/neon-kni6ht/social-media-api/internal/adapters/primary/grpc"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/primary/rest"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/cache"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/eventbroker"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/inmemory"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/repository"
	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/security"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
	"github.com/neon-kni6ht/social-media-api/internal/core/services"
)

func main() {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Initialiser le Logger (slog JSON pour la prod, Text pour le dev)
	initLogger(cfg)
	slog.Info("🚀 Starting Social Media API", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialiser le Tracing (OpenTelemetry)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Error shutting down tracer", "error", err)
			}
		}()
	}

	// 4. Métriques (registre dédié, exposé sur /metrics)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rest.RegisterMetrics(reg)
	eventbroker.RegisterMetrics(reg)
	events.RegisterMetrics(reg)

	var checks []grpc_adapter.Check

	// 5. Infrastructure : Stockage (Postgres ou mémoire)
	var store ports.Store
	switch cfg.Store {
	case config.StorePostgres:
		dbPool := mustConnectPostgres(ctx, cfg)
		defer dbPool.Close()

		pg := repository.NewPostgresStore(dbPool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("Failed to apply schema", "error", err)
			os.Exit(1)
		}
		store = pg
		checks = append(checks, grpc_adapter.Check{Name: "postgres", Ping: dbPool.Ping})
		slog.Info("✅ Database connected")
	default:
		store = inmemory.NewStore()
		slog.Warn("Using in-memory store, data is lost on restart")
	}

	// 6. Infrastructure : Cache Redis devant l'annuaire
	users := store.Users()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Warn("Failed to instrument redis", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Le cache dégrade proprement vers le repository
			slog.Warn("Redis unreachable at startup, cache will fall back to the store", "error", err)
		} else {
			slog.Info("✅ Redis connected")
		}
		users = cache.NewRedisDirectory(users, rdb, cfg.DirectoryCacheTTL)
		checks = append(checks, grpc_adapter.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	// 7. Infrastructure : Event Broker (Nats JetStream)
	var (
		publisher ports.EventPublisher
		js        jetstream.JetStream
	)
	if cfg.EventsEnabled {
		nc, err := nats.Connect(cfg.NatsUrl, nats.Name(cfg.ServiceName))
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()

		broker, stream, err := eventbroker.NewNatsBroker(ctx, nc)
		if err != nil {
			slog.Error("Failed to init JetStream", "error", err)
			os.Exit(1)
		}
		publisher, js = broker, stream
		checks = append(checks, grpc_adapter.Check{Name: "nats", Ping: func(context.Context) error {
			if !nc.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}})
		slog.Info("✅ NATS JetStream connected")
	}

	// 8. Infrastructure : Projection graphe (Neo4j)
	var (
		graph       ports.GraphProjection
		edgeHandler *events.EdgeHandler
	)
	if cfg.GraphProjectionEnabled {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
		if err != nil {
			slog.Error("Failed to create Neo4j driver", "error", err)
			os.Exit(1)
		}
		defer driver.Close(context.Background())

		g := repository.NewNeo4jGraph(driver)
		if err := g.Ping(ctx); err != nil {
			slog.Error("Neo4j unreachable", "error", err)
			os.Exit(1)
		}
		if err := g.EnsureSchema(ctx); err != nil {
			slog.Error("Failed to apply Neo4j constraints", "error", err)
			os.Exit(1)
		}
		graph = g
		edgeHandler = events.NewEdgeHandler(g)
		checks = append(checks, grpc_adapter.Check{Name: "neo4j", Ping: g.Ping})
		slog.Info("✅ Neo4j connected")
	}

	// 9. Infrastructure : Sécurité (Clés RSA & Argon2)
	privKey, pubKey, err := loadKeys(cfg.RSAPrivateKeyPath, cfg.RSAPublicKeyPath)
	if err != nil {
		slog.Error("Failed to load RSA keys", "error", err)
		os.Exit(1)
	}
	jwtProvider, err := security.NewJWTProvider(privKey, pubKey)
	if err != nil {
		slog.Error("Failed to init JWT provider", "error", err)
		os.Exit(1)
	}
	hasher := security.NewArgon2Hasher(nil) // Params par défaut

	// 10. Wiring (Injection de dépendances) - Adapters -> Services
	policy, err := services.ParseFriendRequestPolicy(cfg.FriendRequestPolicy)
	if err != nil {
		slog.Error("Invalid friend request policy", "error", err)
		os.Exit(1)
	}
	opts := []services.Option{services.WithFriendRequestPolicy(policy)}

	svc := rest.Services{
		Directory: services.NewDirectoryService(users, hasher, publisher, opts...),
		Relations: services.NewRelationService(store, users, publisher, opts...),
		Content:   services.NewContentService(store, users, publisher, opts...),
		Feed:      services.NewFeedService(store, users),
		Discovery: services.NewDiscoveryService(store, users, graph),
		Tokens:    jwtProvider,
	}

	healthServer := grpc_adapter.NewServer(cfg.ServiceName, cfg.Env != "prod", checks...)
	api := rest.NewAPI(svc, rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Ready:          healthServer.Ready,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srvHTTP := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	// 11. Démarrage : HTTP, gRPC et consumer partagent le même cycle de vie
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("📡 HTTP API listening", "port", cfg.HTTPPort)
		if err := srvHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srvHTTP.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return healthServer.Serve(gctx, lis)
	})
	g.Go(func() error {
		return api.RunJanitor(gctx)
	})
	if edgeHandler != nil {
		g.Go(func() error {
			return edgeHandler.Run(gctx, js)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("👋 Service stopped")
}

// --- HELPERS ---

func mustConnectPostgres(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Unable to parse DB config", "error", err)
		os.Exit(1)
	}
	if cfg.DBMaxConns > 0 {
		dbConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	// Tracer OpenTelemetry sur chaque requête SQL
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	// Vérification connectivité immédiate (Fail Fast)
	if err := dbPool.Ping(ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(), // En prod, gérez le TLS
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", "1.0.0"),
			attribute.String("deployment.environment", cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// Propagateur global : le trace-id traverse HTTP et NATS
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

func loadKeys(privPath, pubPath string) ([]byte, []byte, error) {
	priv, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key: %w", err)
	}
	pub, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading public key: %w", err)
	}
	return priv, pub, nil
}
