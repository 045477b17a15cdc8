package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	// Instrumentation
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"

	// Interne
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference/rediscache"
	"github.com/lytDeveloper/Lyt-sub003/pkg/telemetry"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/config"
	httpadapter "github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/adapters/primary/http"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/adapters/secondary/eventbroker"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/adapters/secondary/graph"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/adapters/secondary/repository"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/adapters/secondary/security"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/services"
)

func main() {
	// 1. Configuration & Logger
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.Env)
	slog.Info("🚀 Starting Interaction Service", "env", cfg.Env, "http_port", cfg.HTTPPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := telemetry.InitTracer(ctx, "interaction-service", cfg.Env, cfg.OtelEndpoint)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Sécurité : clé publique RSA pour valider les jetons
	publicKey, err := os.ReadFile(cfg.RSAPublicKeyPath)
	if err != nil {
		slog.Error("Unable to read RSA public key", "path", cfg.RSAPublicKeyPath, "error", err)
		os.Exit(1)
	}
	tokens, err := security.NewJWTValidator(publicKey, "")
	if err != nil {
		slog.Error("Invalid RSA public key", "error", err)
		os.Exit(1)
	}

	// 4. Infrastructure: Postgres (source de vérité)
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Invalid DB URL", "error", err)
		os.Exit(1)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		slog.Error("Database unreachable", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to PostgreSQL")

	// 5. Infrastructure: Redis (sets d'appartenance)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		panic(err)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Redis")

	// 6. Infrastructure: Neo4j (miroir follow/block)
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		slog.Error("Failed to create neo4j driver", "error", err)
		os.Exit(1)
	}
	defer driver.Close(context.Background())
	if err := driver.VerifyConnectivity(ctx); err != nil {
		slog.Error("Failed to connect to Neo4j", "error", err)
		os.Exit(1)
	}
	socialGraph := graph.NewNeo4jGraph(driver)
	if err := socialGraph.EnsureSchema(ctx); err != nil {
		slog.Warn("Schema init failed (might be fine if already exists)", "error", err)
	}
	slog.Info("✅ Connected to Neo4j")

	// 7. Infrastructure: NATS JetStream (notifications)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	broker, err := eventbroker.NewNatsBroker(ctx, nc)
	if err != nil {
		slog.Error("Unable to init JetStream", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to NATS", "stream", eventbroker.StreamName)

	// 8. Core
	preferenceService := services.NewPreferenceService(
		repository.NewPostgresRepo(pool),
		rediscache.New(rdb, cfg.MembershipTTL),
		socialGraph,
		broker,
	)

	// 9. gRPC: health check & reflection uniquement
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen", "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// 10. HTTP (API préférences)
	srvHTTP := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(preferenceService), tokens, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("📡 Interaction Service HTTP listening", "port", cfg.HTTPPort)
		if err := srvHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	slog.Info("👋 Server exited")
}
