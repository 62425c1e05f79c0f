package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/api"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/config"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/metrics"
	miniostorage "github.com/clipflow/clipflow-orchestration-service/internal/infra/minio"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/postgres"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/rabbitmq"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/tracing"
	"github.com/clipflow/clipflow-orchestration-service/internal/messaging"
	"github.com/clipflow/clipflow-orchestration-service/internal/usecase"
	"github.com/clipflow/clipflow-orchestration-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting clipflow-orchestration-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: cfg.ServiceName,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// Queue transport
	transport, err := rabbitmq.NewTransport(rabbitmq.TransportConfig{
		URL: cfg.RabbitMQURL,
		Queues: []string{
			cfg.MediaEventsQueue,
			cfg.MediaProcessQueue,
			cfg.MediaResultsQueue,
			cfg.DeadLetterQueue,
		},
	}, log)
	fatalOnErr(err, "connect to rabbitmq")
	defer transport.Close()

	// Wiring
	repo := postgres.NewVideoRepository(pool)
	publisher := messaging.NewPublisher(transport, log)

	processHandler := usecase.NewProcessMediaFileHandler(repo, publisher, cfg.MediaProcessQueue, log)
	eventHandler := usecase.NewMediaEventHandler(processHandler, log)
	updateHandler := usecase.NewUpdateVideoStatusHandler(repo, log)
	resultHandler := usecase.NewMediaResultHandler(updateHandler, log)

	consumer := messaging.NewConsumer(transport, messaging.ConsumerConfig{
		MaxMessages: cfg.ConsumerMaxMessages,
		WaitTime:    time.Duration(cfg.ConsumerWaitSeconds) * time.Second,
		Visibility:  time.Duration(cfg.ConsumerVisibilitySec) * time.Second,
		PollBackoff: time.Duration(cfg.ConsumerBackoffMs) * time.Millisecond,
		MaxReceives: cfg.ConsumerMaxReceives,
		DLQ:         cfg.DeadLetterQueue,
	}, log)

	fatalOnErr(consumer.StartConsuming(ctx, cfg.MediaEventsQueue, eventHandler), "start media events consumer")
	fatalOnErr(consumer.StartConsuming(ctx, cfg.MediaResultsQueue, resultHandler), "start media results consumer")

	// HTTP surfaces
	metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
	apiSrv := api.NewServer(repo, storage, time.Duration(cfg.SignedURLExpirySeconds)*time.Second, log).
		Start(cfg.APIPort)

	log.Info("clipflow-orchestration-service started",
		zap.String("events_queue", cfg.MediaEventsQueue),
		zap.String("results_queue", cfg.MediaResultsQueue),
	)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	consumer.StopAll()
	cancel()
	consumer.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)

	log.Info("clipflow-orchestration-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
