package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"image-jobs/internal/broker"
	"image-jobs/internal/domain"
	"image-jobs/internal/keys"
	"image-jobs/internal/metrics"
	repoJob "image-jobs/internal/repository/job"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxFailureReason = 500

	// statusWriteTimeout bounds the final status write once shutdown has
	// cancelled the task context.
	statusWriteTimeout = 10 * time.Second
)

type Worker struct {
	consumer    broker.Consumer
	processor   imageProcessor
	jobRepo     jobRepository
	fileRepo    fileRepository
	logger      *zlog.Zerolog
	retries     retry.Strategy
	concurrency int
	wg          sync.WaitGroup
}

func NewWorker(consumer broker.Consumer, processor imageProcessor, jobRepo jobRepository, fileRepo fileRepository, logger *zlog.Zerolog, retries retry.Strategy, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		consumer:    consumer,
		processor:   processor,
		jobRepo:     jobRepo,
		fileRepo:    fileRepo,
		logger:      logger,
		retries:     retries,
		concurrency: concurrency,
	}
}

// Run consumes tasks until ctx is cancelled and waits for in-flight tasks to
// finish before returning.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("Starting worker")

	messages := make(chan *broker.Message, w.concurrency*2)
	w.consumer.Start(ctx, messages, w.retries)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			metrics.ActiveWorkers.Inc()
			defer metrics.ActiveWorkers.Dec()
			w.processWorker(ctx, id, messages)
		}(i)
	}

	w.logger.Info().Msg("Worker started successfully")
	<-ctx.Done()

	w.logger.Info().Msg("Shutting down worker gracefully...")
	w.wg.Wait()
	w.logger.Info().Msg("Worker stopped gracefully")
	return nil
}

func (w *Worker) processWorker(ctx context.Context, id int, messages <-chan *broker.Message) {
	w.logger.Info().Int("worker_id", id).Msg("Worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			startTime := time.Now()
			if err := w.safeProcessMessage(ctx, id, msg); err != nil {
				w.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to process message")
			}

			// The job already carries a terminal status, so a redelivered
			// message is skipped.
			if ctx.Err() != nil {
				return
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				w.logger.Error().
					Err(err).
					Int64("offset", msg.Offset).
					Int("worker_id", id).
					Msg("Failed to commit message")
				continue
			}
			w.logger.Debug().
				Int("worker_id", id).
				Int64("offset", msg.Offset).
				Dur("duration", time.Since(startTime)).
				Msg("Message processed and committed")
		}
	}
}

func (w *Worker) safeProcessMessage(ctx context.Context, workerID int, msg *broker.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Int64("offset", msg.Offset).
				Msg("Panic recovered while processing message")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processMessage(ctx, msg)
}

func (w *Worker) processMessage(ctx context.Context, msg *broker.Message) error {
	var task domain.ProcessingTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return w.ProcessTask(ctx, &task)
}

// ProcessTask runs one job to a terminal status. Redelivered tasks for jobs
// that already left pending are skipped.
func (w *Worker) ProcessTask(ctx context.Context, task *domain.ProcessingTask) error {
	if task.JobID == "" {
		return fmt.Errorf("task %s has no job id", task.ID)
	}

	log := w.logger.With().Str("job_id", task.JobID).Str("task_id", task.ID).Logger()

	if err := w.jobRepo.MarkProcessing(ctx, task.JobID); err != nil {
		if errors.Is(err, repoJob.ErrInvalidTransition) || errors.Is(err, repoJob.ErrJobNotFound) {
			log.Warn().Err(err).Msg("Skipping task")
			return nil
		}
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	log.Info().Int("operations", len(task.Operations)).Msg("Processing task started")
	startTime := time.Now()

	resultKey, err := w.run(ctx, task)
	metrics.WorkerProcessingDuration.Observe(time.Since(startTime).Seconds())

	// The final status write outlives a shutdown; a job never stays processing.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err != nil {
		reason := err.Error()
		if ctx.Err() != nil {
			reason = "processing interrupted by shutdown: " + reason
		}
		log.Error().Err(err).Msg("Image processing failed")
		metrics.WorkerResultsTotal.WithLabelValues(string(domain.StatusFailed)).Inc()
		if markErr := w.jobRepo.MarkFailed(writeCtx, task.JobID, failureReason(reason)); markErr != nil {
			return fmt.Errorf("failed to mark job failed: %w", markErr)
		}
		return nil
	}

	if err := w.jobRepo.MarkCompleted(writeCtx, task.JobID, resultKey); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	metrics.WorkerResultsTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
	log.Info().Str("result_key", resultKey).Dur("duration", time.Since(startTime)).Msg("Image processing completed")
	return nil
}

func (w *Worker) run(ctx context.Context, task *domain.ProcessingTask) (string, error) {
	resultKey, err := keys.For(task.JobID, keys.RoleOutput)
	if err != nil {
		return "", err
	}

	inputKey := task.InputKey
	if inputKey == "" {
		if inputKey, err = keys.For(task.JobID, keys.RoleInput); err != nil {
			return "", err
		}
	}

	reader, _, err := w.fileRepo.GetObject(ctx, inputKey)
	if err != nil {
		return "", fmt.Errorf("failed to get input image: %w", err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read input image: %w", err)
	}

	out, err := w.processor.Process(ctx, task, data)
	if err != nil {
		return "", err
	}

	if err := w.fileRepo.PutObject(ctx, resultKey, out.Data, out.ContentType, resultFileName(task.FileName, out.Format)); err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}

	return resultKey, nil
}

// failureReason caps the diagnostic without splitting a UTF-8 sequence.
func failureReason(msg string) string {
	if len(msg) <= maxFailureReason {
		return msg
	}
	cut := maxFailureReason
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func resultFileName(original string, format domain.ImageFormat) string {
	if original == "" {
		return "result." + string(format)
	}
	if i := strings.LastIndex(original, "."); i > 0 {
		original = original[:i]
	}
	return original + "_processed." + string(format)
}
