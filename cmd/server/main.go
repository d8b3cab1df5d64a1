package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/copal/internal/api"
	"github.com/oggyb/copal/internal/app"
	"github.com/oggyb/copal/internal/cache"
	"github.com/oggyb/copal/internal/config"
	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/logger"
	"github.com/oggyb/copal/internal/notify"
	"github.com/oggyb/copal/internal/realtime"
	"github.com/oggyb/copal/internal/server"
	"github.com/oggyb/copal/internal/service/chat"
	"github.com/oggyb/copal/internal/service/interaction"
	"github.com/oggyb/copal/internal/supervisor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Redis is optional: without it counts are not cached and match events
	// stay in this process
	var redisCache *cache.RedisCache
	rc := cache.NewRedisCache(cfg)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, continuing without it", "addr", cfg.Redis.Addr, "err", err)
		_ = rc.Close()
	} else {
		redisCache = rc
		defer redisCache.Close()
	}
	cancelPing()

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.IsDevelopment() {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	tree := supervisor.NewTree(log, supervisor.DefaultTreeConfig())

	chats := chat.NewService(appCtx, nil)
	hub := realtime.NewHub(chats, log, realtime.OptionsFromConfig(cfg))
	chats.SetPublisher(hub)
	tree.AddMessagingService(supervisor.NewHubService(hub))

	var notifier interaction.Notifier = notify.NewLocal(hub)
	if redisCache != nil {
		notifier = notify.NewRedisPublisher(redisCache, cfg.Notify.MatchChannel, notify.DefaultBreakerConfig(), log)
		tree.AddMessagingService(notify.NewRelay(redisCache, cfg.Notify.MatchChannel, hub, log))
	}
	interactions := interaction.NewService(appCtx, notifier)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           api.NewRouter(api.NewHandler(appCtx, interactions, chats, hub)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, shutdownTimeout))

	tree.AddAPIService(supervisor.NewGRPCServerService(
		func() supervisor.GRPCServer {
			return server.NewGRPCServer(log, interaction.NewRegistrar(interactions))
		},
		func() (net.Listener, error) { return server.Listen(cfg) },
		shutdownTimeout,
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting copal",
		"http_addr", httpServer.Addr,
		"grpc_addr", net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port),
		"redis", redisCache != nil,
	)

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("supervisor stopped with error", "err", err)
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		log.Warn("services did not stop in time", "count", len(report))
	}
	log.Info("shutdown complete")
}
