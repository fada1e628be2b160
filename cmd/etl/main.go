package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/crossing-times-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crossing-times-etl/internal/adapter/kafka"
	"github.com/couchcryptid/crossing-times-etl/internal/config"
	"github.com/couchcryptid/crossing-times-etl/internal/feed"
	"github.com/couchcryptid/crossing-times-etl/internal/observability"
	"github.com/couchcryptid/crossing-times-etl/internal/pipeline"
	"github.com/couchcryptid/crossing-times-etl/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		MinConns: cfg.DBMinConns,
		MaxConns: cfg.DBMaxConns,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.CreateSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	client := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger)

	// Downstream fact sink (feature-flagged via KAFKA_ENABLED).
	var publisher pipeline.FactPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka fact sink enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka fact sink disabled")
	}

	p := pipeline.New(client, db, publisher, pipeline.Variant(cfg.SchemaVariant),
		clockwork.NewRealClock(), logger, metrics)

	exitCode := 0
	switch cfg.RunMode {
	case config.RunModeOnce:
		if err := p.Run(ctx); err != nil {
			exitCode = 1
		}
	default:
		if err := serve(ctx, cfg, p, logger); err != nil {
			logger.Error("serve error", "error", err)
			exitCode = 1
		}
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}

// serve runs the HTTP trigger server until the context is cancelled, then
// drains it within the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
