package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"certledger/internal/commitstore"
	"certledger/internal/events"
	"certledger/internal/ledger"
	"certledger/internal/platform/auth"
	"certledger/internal/platform/config"
	"certledger/internal/platform/httpserver"
	"certledger/internal/platform/logger"
	"certledger/internal/platform/metrics"
	redisplatform "certledger/internal/platform/redis"
	"certledger/internal/registry"
	"certledger/internal/registry/cache"
	"certledger/internal/service"
	httptransport "certledger/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "certledger: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg.OwnerIdentity, registry.NewInMemoryStateStore())
	engine := ledger.NewEngine(reg,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
	)

	commits, cleanup, err := buildCommitStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAwaitTimeout(cfg.AwaitTimeout),
	}

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		svcOpts = append(svcOpts, service.WithCache(cache.New(redisClient.Client, cfg.CacheTTL)))
		log.Info("record cache enabled", "ttl", cfg.CacheTTL)
	}

	publisher, err := buildPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()
	worker := events.NewWorker(publisher, engine.Events(), log)

	svc := service.New(engine, commits, svcOpts...)

	tokens := auth.NewTokenService([]byte(cfg.JWTSigningKey))
	handler := httptransport.New(svc, log, tokens)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return worker.Run(ctx) })

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "owner", cfg.OwnerIdentity)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("server stopped")
	return nil
}

func buildCommitStore(ctx context.Context, cfg config.Server, log *slog.Logger) (commitstore.Store, func(), error) {
	if cfg.PostgresURL == "" {
		log.Info("commitment store using local file", "path", cfg.CommitStorePath)
		return commitstore.NewFileStore(cfg.CommitStorePath), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := commitstore.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info("commitment store using postgres")
	return store, func() { _ = db.Close() }, nil
}

func buildPublisher(cfg config.Server, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("event publisher running in-memory")
		return events.NewMemoryPublisher(), nil
	}

	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventTopic)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	log.Info("event publisher connected", "brokers", cfg.KafkaBrokers, "topic", cfg.EventTopic)
	return publisher, nil
}
