package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafka_impl "image-jobs/internal/broker/kafka"
	"image-jobs/internal/config"
	minio_repo "image-jobs/internal/repository/job/cloud/minio"
	postgres_repo "image-jobs/internal/repository/job/db/postgres"
	"image-jobs/internal/usecase/processor"
	"image-jobs/internal/worker"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// App wires the worker pool to Postgres, MinIO and Kafka.
type App struct {
	cfg      *config.Config
	logger   *zlog.Zerolog
	db       *dbpg.DB
	consumer *kafka_impl.ConsumerClient
	pool     *worker.Worker
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	retries := cfg.DefaultRetryStrategy()

	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	fileRepo, err := minio_repo.NewMinIORepository(cfg, retries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	imageProcessor, err := processor.NewImageProcessor(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image processor: %w", err)
	}

	jobRepo := postgres_repo.NewJobsRepository(db, retries)
	consumer := kafka_impl.NewConsumerClient(cfg)

	pool := worker.NewWorker(consumer, imageProcessor, jobRepo, fileRepo, logger, retries, cfg.Worker.Concurrency)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		consumer: consumer,
		pool:     pool,
	}, nil
}

// Run blocks until SIGINT or SIGTERM, then drains in-flight tasks.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		a.logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	err := a.pool.Run(ctx)

	if closeErr := a.consumer.Close(); closeErr != nil {
		a.logger.Error().Err(closeErr).Msg("Failed to close consumer")
	}
	if a.db != nil && a.db.Master != nil {
		a.db.Master.Close()
	}

	return err
}
