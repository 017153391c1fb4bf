package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"image-jobs/internal/codec"
	"image-jobs/internal/domain"
	"image-jobs/internal/keys"
	"image-jobs/internal/metrics"
	repoJob "image-jobs/internal/repository/job"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const enqueueFailureReason = "failed to enqueue task"

type StoreInputRequest struct {
	TaskID   string
	FileName string

	// Exactly one of Content and Encoded carries the payload: raw bytes on
	// the multipart leg, base64 text on the JSON leg.
	Content []byte
	Encoded string
}

type SubmitRequest struct {
	Type       string
	FileName   string
	Content    []byte
	Operations []domain.OperationParams
}

type Retrieval struct {
	Key         string
	Encoded     string
	ContentType string
	Size        int64
}

type JobUsecase struct {
	repo       jobRepository
	fileRepo   fileRepository
	producer   taskProducer
	logger     *zlog.Zerolog
	maxPayload int64
}

func NewJobUsecase(repo jobRepository, fileRepo fileRepository, producer taskProducer, logger *zlog.Zerolog, maxPayload int64) *JobUsecase {
	return &JobUsecase{
		repo:       repo,
		fileRepo:   fileRepo,
		producer:   producer,
		logger:     logger,
		maxPayload: maxPayload,
	}
}

// StoreInput writes a job's input blob and returns its key. Validation
// happens before the single store write; nothing is written on a bad request.
func (u *JobUsecase) StoreInput(ctx context.Context, req StoreInputRequest) (string, error) {
	var missing []string
	if req.TaskID == "" {
		missing = append(missing, "taskId")
	}
	if req.FileName == "" {
		missing = append(missing, "fileName")
	}
	if len(req.Content) == 0 && req.Encoded == "" {
		missing = append(missing, "fileContent")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	key, err := keys.For(req.TaskID, keys.RoleInput)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	data := req.Content
	if req.Encoded != "" {
		if int64(codec.DecodedLen(len(req.Encoded))) > u.maxPayload+2 {
			return "", fmt.Errorf("%w: encoded payload of %d bytes", ErrPayloadTooLarge, len(req.Encoded))
		}
		data, err = codec.Decode(req.Encoded)
		if err != nil {
			return "", err
		}
	}

	if int64(len(data)) > u.maxPayload {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), u.maxPayload)
	}

	contentType := mimetype.Detect(data).String()
	if err := u.fileRepo.PutObject(ctx, key, data, contentType, req.FileName); err != nil {
		metrics.StorageWriteFailuresTotal.Inc()
		u.logger.Error().Err(err).Str("task_id", req.TaskID).Str("key", key).Msg("Failed to store input")
		return "", fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}

	metrics.InputsStoredTotal.Inc()
	u.logger.Info().
		Str("task_id", req.TaskID).
		Str("key", key).
		Str("content_type", contentType).
		Int("size", len(data)).
		Msg("Input stored")

	return key, nil
}

// SubmitJob stores the input, records the job as pending and hands it to the
// worker pool. The returned job carries the id the client polls with.
func (u *JobUsecase) SubmitJob(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	if req.Type == "" || len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: type and content are required", ErrInvalidRequest)
	}
	if req.Type != domain.JobTypeImage {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidRequest, req.Type)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "upload"
	}

	jobID := uuid.NewString()

	inputKey, err := u.StoreInput(ctx, StoreInputRequest{
		TaskID:   jobID,
		FileName: fileName,
		Content:  req.Content,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	j := &domain.Job{
		ID:         jobID,
		Type:       req.Type,
		FileName:   fileName,
		Status:     domain.StatusPending,
		InputKey:   inputKey,
		Operations: req.Operations,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := u.repo.Create(ctx, j); err != nil {
		u.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to create job record")
		return nil, fmt.Errorf("%w: %w", ErrStatusStoreFailed, err)
	}

	task := &domain.ProcessingTask{
		ID:         uuid.NewString(),
		JobID:      jobID,
		InputKey:   inputKey,
		FileName:   fileName,
		Operations: req.Operations,
	}

	if err := u.producer.Publish(ctx, task); err != nil {
		u.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to send task to Kafka")
		if markErr := u.repo.MarkFailed(ctx, jobID, enqueueFailureReason); markErr != nil {
			u.logger.Error().Err(markErr).Str("job_id", jobID).Msg("Failed to mark job failed")
		}
		return nil, fmt.Errorf("%w: %w", ErrEnqueueFailed, err)
	}

	metrics.JobsSubmittedTotal.Inc()
	u.logger.Info().
		Str("job_id", jobID).
		Str("file_name", fileName).
		Int("operations", len(req.Operations)).
		Msg("Job submitted and queued for processing")

	return j, nil
}

func (u *JobUsecase) GetStatus(ctx context.Context, id string) (*domain.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing job id", ErrInvalidRequest)
	}

	j, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repoJob.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStatusStoreFailed, err)
	}

	return j, nil
}

// Retrieve reads the blob at key and encodes it for transport. Any backend
// failure, including a missing object, comes back as ErrRetrievalFailed with
// the backend error attached.
func (u *JobUsecase) Retrieve(ctx context.Context, key string) (*Retrieval, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: missing key", ErrInvalidRequest)
	}

	reader, size, err := u.fileRepo.GetObject(ctx, key)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("failed").Inc()
		u.logger.Error().Err(err).Str("key", key).Msg("Failed to get object")
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}
	defer reader.Close()

	if size > u.maxPayload {
		metrics.RetrievalsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, size, u.maxPayload)
	}

	data, err := io.ReadAll(io.LimitReader(reader, u.maxPayload+1))
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("failed").Inc()
		u.logger.Error().Err(err).Str("key", key).Msg("Failed to read object")
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}
	if int64(len(data)) > u.maxPayload {
		metrics.RetrievalsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, u.maxPayload)
	}

	metrics.RetrievalsTotal.WithLabelValues("ok").Inc()
	u.logger.Debug().Str("key", key).Int("size", len(data)).Msg("Object retrieved")

	return &Retrieval{
		Key:         key,
		Encoded:     codec.Encode(data),
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
	}, nil
}
