package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"lingomate/auth"
	"lingomate/config"
	"lingomate/database"
	"lingomate/handlers"
	"lingomate/middleware"
	"lingomate/presence"
	"lingomate/service"
	"lingomate/storage"
	"lingomate/websocket"
)

func main() {
	root := &cobra.Command{
		Use:           "lingomate",
		Short:         "Language-exchange backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MySQL tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := database.Connect(cmd.Context(), cfg.MysqlDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.CreateTables(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("tables created")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

type closer func() error

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Store, closer, error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := database.Connect(ctx, cfg.MysqlDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.CreateTables(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewStore(db), db.Close, nil
}

func openLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (middleware.Limiter, closer, error) {
	if cfg.RedisURL == "" {
		return middleware.NewMemoryLimiter(middleware.LoginWindow, middleware.LoginMaxAttempts), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis connected")
	return middleware.NewRedisLimiter(client, middleware.LoginWindow, middleware.LoginMaxAttempts), client.Close, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, *storage.Local, error) {
	if cfg.Minio.Enabled() {
		m, err := storage.NewMinio(ctx, cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	}
	local, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, closeLimiter, err := openLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	avatars, local, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	sessions := auth.NewIssuer(cfg.JWTSecret)

	var chat presence.Client = presence.Disabled{}
	if cfg.Stream.Enabled() {
		sc, err := presence.NewStreamClient(cfg.Stream.APIKey, cfg.Stream.APISecret, cfg.Stream.BaseURL, cfg.Stream.Timeout)
		if err != nil {
			return err
		}
		chat = sc
	} else {
		logger.Warn("STREAM_API_KEY or STREAM_API_SECRET missing; chat sync disabled")
	}
	syncer := presence.NewSyncer(chat, cfg.Stream.Timeout, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(cfg.AllowedOrigins, logger)
	go hub.Run(hubCtx)

	authSvc := service.NewAuthService(store, hasher, sessions, syncer, logger)
	h := &handlers.Handler{
		Auth:          authSvc,
		Profiles:      service.NewProfileService(store, avatars, syncer, logger),
		Friends:       service.NewFriendsService(store, store, hub, logger),
		Users:         service.NewUsersService(store, chat, logger),
		Hub:           hub,
		Files:         local,
		DB:            store,
		SecureCookies: cfg.IsProduction(),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	router := handlers.NewRouter(h, middleware.AuthMiddleware(authSvc), handlers.RouterOptions{
		Middleware: []gin.HandlerFunc{
			middleware.RequestLogger(logger),
			metrics.Middleware(),
			middleware.CORSMiddleware(cfg.AllowedOrigins),
		},
		LoginLimiter: middleware.LoginRateLimit(limiter),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ServerAddr, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	stopHub()
	if err := syncer.Wait(shutdownCtx); err != nil {
		logger.Warn("presence sync still running at shutdown", "error", err)
	}
	return nil
}
