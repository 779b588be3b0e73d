package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"blindbox/internal/bot"
	"blindbox/internal/config"
	"blindbox/internal/db"
	"blindbox/internal/domain"
	"blindbox/internal/events"
	httpServer "blindbox/internal/http"
	"blindbox/internal/http/middleware"
	"blindbox/internal/logger"
	"blindbox/internal/random"
	"blindbox/internal/repository"
	"blindbox/internal/repository/memory"
	"blindbox/internal/service"
	"blindbox/internal/ws"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	defer logger.Sync()

	if !cfg.App.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	service.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	redisClient := connectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	middleware.InitRedis(redisClient)

	hub := ws.NewHub()
	go hub.Run(ctx)

	// With Redis every instance feeds its hub from the shared channel,
	// including its own events.
	var pub events.Publisher = hub
	if redisClient != nil {
		pub = events.NewRedisPublisher(redisClient, cfg.Redis.EventsChannel)
		go func() {
			if err := events.Subscribe(ctx, redisClient, cfg.Redis.EventsChannel, hub); err != nil {
				logger.Error("event subscription stopped", "error", err)
			}
		}()
	}

	pub = events.Multi{pub, events.Func(func(_ context.Context, evts ...domain.Event) {
		for _, e := range evts {
			logger.Debug("event committed", "type", e.Type, "attributes", e.Attributes)
		}
	})}

	svc := httpServer.BuildServices(cfg, store, random.NewKeyed([]byte(cfg.Random.Secret)), pub)
	if _, err := svc.Status.Pools(ctx); err != nil {
		logger.Warn("initial pool status", "error", err)
	}

	if cfg.Auth.AdminBotToken != "" {
		adminBot, err := bot.NewAdminBot(cfg.Auth.AdminBotToken, bot.NewCommands(svc.Accounts, svc.Admin, svc.Status))
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			go adminBot.Start()
			defer adminBot.Stop()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           httpServer.NewRouter(cfg, store, svc, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.App.Port, "storage", cfg.DB.Storage, "version", cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func()) {
	if cfg.DB.Storage == "memory" {
		logger.Warn("using in-memory storage; state is lost on restart")
		return memory.New(cfg.Ledger.ExistentialDeposit), func() {}
	}

	if cfg.DB.Migrate {
		if err := db.Migrate(ctx, cfg.DB.URL); err != nil {
			logger.Fatal("migrate", "error", err)
		}
	}
	pool, err := db.Connect(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		logger.Fatal("connect database", "error", err)
	}
	return repository.NewPgStore(pool, cfg.Ledger.ExistentialDeposit), pool.Close
}

// connectRedis returns nil when Redis is not configured or unreachable;
// rate limits then fall back to per-process counters and events stay local.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", cfg.Addr)
	return client
}
