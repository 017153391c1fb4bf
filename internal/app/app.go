package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kafka_impl "image-jobs/internal/broker/kafka"
	"image-jobs/internal/config"
	job_h "image-jobs/internal/http-server/handler/job"
	"image-jobs/internal/http-server/router"
	minio_repo "image-jobs/internal/repository/job/cloud/minio"
	postgres_repo "image-jobs/internal/repository/job/db/postgres"
	job_uc "image-jobs/internal/usecase/job"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	db       *dbpg.DB
	producer *kafka_impl.ProducerClient
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	// Submission and retrieval are single-shot: backend errors reach the
	// caller instead of being retried here.
	requestPath := cfg.SingleShotStrategy()

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DB.MigrateOnStart {
		if err := postgres_repo.Migrate(db.Master); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info().Msg("Database migrations applied")
	}

	fileRepo, err := minio_repo.NewMinIORepository(cfg, cfg.DefaultRetryStrategy(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	jobRepo := postgres_repo.NewJobsRepository(db, requestPath)

	producer := kafka_impl.NewProducerClient(cfg, requestPath)

	jobUsecase := job_uc.NewJobUsecase(jobRepo, fileRepo, producer, logger, cfg.Upload.MaxSize)

	jobHandler := job_h.NewJobHandler(jobUsecase, logger, cfg.Upload.MaxSize)

	h := &router.Handler{
		JobHandler: jobHandler,
	}

	mux := router.SetupRouter(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		db:       db,
		producer: producer,
	}, nil
}

func openDB(cfg *config.Config) (*dbpg.DB, error) {
	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleSignals(a.logger, cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		a.close()
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		a.close()
		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) close() {
	if a.db != nil && a.db.Master != nil {
		if err := a.db.Master.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database")
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close producer")
		}
	}
}

func handleSignals(logger *zlog.Zerolog, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
