package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"creator_mirror/internal/config"
	"creator_mirror/internal/downloader"
	"creator_mirror/internal/platform"
	"creator_mirror/internal/platform/douyin"
	"creator_mirror/internal/platform/tiktok"
	"creator_mirror/internal/publisher"
	"creator_mirror/internal/scheduler"
	"creator_mirror/internal/service"
	"creator_mirror/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize stores
	itemStore := postgres.NewItemStore(db)
	subjectStore := postgres.NewSubjectStore(db)
	taskStore := postgres.NewTaskStore(db)
	settingStore := postgres.NewSettingStore(db)
	txManager := postgres.NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := settingStore.EnsureDefaults(ctx); err != nil {
		logger.Error("failed to seed settings", "error", err)
		os.Exit(1)
	}

	// Sweep tasks orphaned by the previous process before anything runs.
	swept, err := taskStore.FailRunning(ctx, "interrupted by restart")
	if err != nil {
		logger.Error("failed to reconcile running tasks", "error", err)
		os.Exit(1)
	}
	if swept > 0 {
		logger.Info("reconciled orphaned tasks", "count", swept)
	}

	// Initialize RabbitMQ publisher (optional)
	var events service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	// Initialize platform clients
	registry := platform.NewRegistry(
		douyin.New(douyin.Config{
			ListURL:      cfg.Platforms.Douyin.ListURL,
			ProfileURL:   cfg.Platforms.Douyin.ProfileURL,
			PageSize:     cfg.Sync.PageSize,
			Timeout:      cfg.Platforms.Douyin.Timeout,
			RequestDelay: cfg.Sync.RequestDelay,
		}, logger),
		tiktok.New(tiktok.Config{
			ListURL:      cfg.Platforms.TikTok.ListURL,
			ProfileURL:   cfg.Platforms.TikTok.ProfileURL,
			PageSize:     cfg.Sync.PageSize,
			Timeout:      cfg.Platforms.TikTok.Timeout,
			RequestDelay: cfg.Sync.RequestDelay,
		}, logger),
	)

	media := downloader.New(downloader.Config{
		APIURL:  cfg.Download.APIURL,
		SaveDir: cfg.Download.SaveDir,
		Timeout: cfg.Download.Timeout,
	}, logger)

	syncService := service.NewSyncService(
		registry,
		itemStore,
		subjectStore,
		taskStore,
		settingStore,
		media,
		events,
		logger,
	)

	engine := service.NewEngine(
		syncService,
		subjectStore,
		itemStore,
		taskStore,
		settingStore,
		platform.NewResolver(10*time.Second),
		txManager,
		logger,
		cfg.Sync.RunTimeout,
	)

	sched := scheduler.New(engine, settingStore, cfg.Sync.FaultBackoff, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting creator mirror",
		"platforms", registry.Tags(),
		"save_dir", cfg.Download.SaveDir,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
