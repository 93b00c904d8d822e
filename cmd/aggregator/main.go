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

	"intern_radar/internal/browser"
	"intern_radar/internal/config"
	"intern_radar/internal/fallback"
	"intern_radar/internal/filter"
	"intern_radar/internal/normalize"
	"intern_radar/internal/publisher"
	"intern_radar/internal/scheduler"
	"intern_radar/internal/server"
	"intern_radar/internal/service"
	"intern_radar/internal/source"
	"intern_radar/internal/source/internshala"
	"intern_radar/internal/source/prosple"
	"intern_radar/internal/source/unstop"
	"intern_radar/internal/storage/postgres"
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

	// Listing events are optional; without a broker URL the aggregator runs
	// standalone.
	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
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
		pub = rabbitMQ
	} else {
		logger.Info("no rabbitmq url configured, listing events disabled")
	}

	store := postgres.NewListingStore(db)

	relevance := filter.NewRelevance()
	norm := normalize.New()
	launcher := browser.NewLauncher(cfg.Browser, logger)
	webSearch := fallback.NewWebSearch(cfg.Fallback, logger)

	fetchers := []source.Fetcher{
		internshala.New(launcher, relevance, logger),
		unstop.New(launcher, relevance, logger),
		prosple.New(launcher, relevance, logger),
	}

	collectors := make([]service.Collector, 0, len(fetchers))
	for _, f := range fetchers {
		collectors = append(collectors, fallback.NewOrchestrator(f, webSearch, relevance, norm, logger))
	}

	searchService := service.NewSearchService(store, collectors, pub, logger, cfg.Search)
	poolService := service.NewPoolService(store, collectors, pub, logger, cfg.Pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(poolService, cfg.Pool.CronSpec, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := server.New(searchService, poolService, cfg.Server, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("aggregator started",
		"sources", len(fetchers),
		"fast_source", cfg.Search.FastSource,
		"cron", cfg.Pool.CronSpec,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "error", err)
		}
	}

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	// Let in-flight background refreshes land before the process exits.
	searchService.Wait()
	logger.Info("aggregator stopped")
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
