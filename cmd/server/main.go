package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/tubematch/internal/activity"
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/cache"
	"github.com/oggyb/tubematch/internal/config"
	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/identity"
	"github.com/oggyb/tubematch/internal/llm"
	"github.com/oggyb/tubematch/internal/logger"
	"github.com/oggyb/tubematch/internal/realtime"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/seed"
	"github.com/oggyb/tubematch/internal/server"
	"github.com/oggyb/tubematch/internal/service/auth"
	"github.com/oggyb/tubematch/internal/service/explore"
	"github.com/oggyb/tubematch/internal/service/match"
	"github.com/oggyb/tubematch/internal/service/profile"
	"github.com/oggyb/tubematch/internal/session"
	"github.com/oggyb/tubematch/internal/storage"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	// Inject logger into app context
	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := seed.Run(ctx, database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	sessions, err := session.NewManager(cfg.Auth)
	if err != nil {
		log.Error("failed to init sessions", "err", err)
		os.Exit(1)
	}

	provider := identity.NewProvider(cfg.Auth, repository.NewTokenRepository(database), log)
	if !provider.Configured() {
		log.Warn("google sign-in is not configured, login routes will answer 503")
	}

	avatars, err := storage.NewAvatars(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to init avatar storage", "err", err)
		os.Exit(1)
	}
	if !avatars.Enabled() {
		log.Info("avatar uploads disabled, no bucket configured")
	}

	collector := activity.NewCollector(log).ForUsers(provider)
	model := llm.NewClient(cfg.LLM)

	sockets := realtime.NewServer(sessions, log)
	notifier := realtime.NewNotifier(sockets, log)

	registrars := []server.Registrar{
		auth.NewRegistrar(appCtx, provider, sessions),
		match.NewRegistrar(appCtx, notifier),
		explore.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx, model, collector, avatars),
	}

	router := server.NewRouter(appCtx, sessions, repository.NewUserRepository(database), sockets, registrars...)
	handler := server.WithCORS(router, cfg.HTTP.AllowedOrigins)

	health := server.NewHealthRegistrar(log, map[string]server.Checker{
		"database": func(context.Context) error { return db.Ping(database) },
		"redis":    redisCache.Ping,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Serve returns once Close is called below
		if err := sockets.Serve(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return sockets.Close()
	})

	g.Go(func() error {
		health.Watch(ctx)
		return nil
	})

	g.Go(func() error {
		addr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
		log.Info("starting gRPC server", "addr", addr)
		return server.StartGRPCServer(ctx, addr, health)
	})

	g.Go(func() error {
		addr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		log.Info("starting HTTP server", "addr", addr)
		return server.StartHTTPServer(ctx, addr, handler, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
