package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/cwrk-planet/watchparty/config"
	"github.com/cwrk-planet/watchparty/internal/events"
	"github.com/cwrk-planet/watchparty/internal/memory"
	"github.com/cwrk-planet/watchparty/internal/postgres"
	"github.com/cwrk-planet/watchparty/internal/presence"
	"github.com/cwrk-planet/watchparty/internal/redisstore"
	httpserver "github.com/cwrk-planet/watchparty/internal/server/http"
	"github.com/cwrk-planet/watchparty/internal/service"
	grpcx "github.com/cwrk-planet/watchparty/internal/transport/grpc"
	httpx "github.com/cwrk-planet/watchparty/internal/transport/http"
	"github.com/cwrk-planet/watchparty/internal/transport/ws"
	"github.com/cwrk-planet/watchparty/pkg/logger"
)

type storage struct {
	catalog service.Catalog
	store   service.MessageStore
	close   func()
}

func main() {
	// --- config ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting watchparty",
		"env", cfg.Logging.Env,
		"version", cfg.Logging.Version,
		"storage", cfg.Storage.Backend,
		"events", cfg.Events.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("watchparty stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- storage ---
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// --- events ---
	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	// --- services ---
	tracker := presence.NewTracker(st.catalog, presence.WithTimeout(cfg.Presence.Timeout))
	gw := service.NewGateway(st.catalog, st.store, tracker, bus, service.GatewayConfig{
		PollLimit:        cfg.Chat.PollLimit,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		SweepInterval:    cfg.Presence.SweepInterval,
	})

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, gw, cfg.HTTP.WSPingEvery)

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Gateway:        gw,
		WS:             wsServer.HandleWS,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	httpSrv := httpserver.New(httpserver.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, hub.CloseAll)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx) })
	g.Go(func() error { return gw.RunSweeper(gctx) })

	// --- gRPC ---
	if cfg.GRPC.Addr != "" {
		grpcSrv := grpcx.NewGRPCServer(gw, cfg.GRPC.Deadline)
		g.Go(func() error { return grpcx.Run(gctx, grpcSrv, cfg.GRPC.Addr) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	movies, rooms, users := cfg.Catalog.Domain()

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			return nil, err
		}
		if err := prepareSchema(ctx, cfg, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			catalog: postgres.NewCatalog(pool),
			store:   postgres.NewMessageLog(pool),
			close:   pool.Close,
		}, nil

	case "redis":
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		catalog := memory.NewCatalog(movies, rooms, users)
		return &storage{
			catalog: catalog,
			store:   redisstore.NewMessageLog(client, catalog, cfg.Redis.Prefix),
			close:   func() { _ = client.Close() },
		}, nil

	default:
		catalog := memory.NewCatalog(movies, rooms, users)
		return &storage{
			catalog: catalog,
			store:   memory.NewMessageLog(catalog, nil),
			close:   func() {},
		}, nil
	}
}

func prepareSchema(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	if !cfg.Postgres.Migrate {
		return nil
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	movies, rooms, users := cfg.Catalog.Domain()
	if err := postgres.Seed(ctx, pool, movies, rooms, users); err != nil {
		return err
	}
	slog.Info("postgres schema ready",
		"movies", len(movies), "rooms", len(rooms), "users", len(users))
	return nil
}

func openBus(cfg *config.Config) (events.Bus, error) {
	if cfg.Events.Backend != "nats" {
		return events.NewLocal(), nil
	}
	return events.NewNATS(events.NATSConfig{
		URL:           cfg.Events.NATS.URL,
		SubjectPrefix: cfg.Events.NATS.SubjectPrefix,
		Name:          cfg.Logging.Service,
	})
}
