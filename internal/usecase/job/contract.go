package job

import (
	"context"
	"io"

	"image-jobs/internal/domain"
)

type jobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

type fileRepository interface {
	PutObject(ctx context.Context, key string, data []byte, contentType, fileName string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

type taskProducer interface {
	Publish(ctx context.Context, task *domain.ProcessingTask) error
}
