package worker

import (
	"context"
	"io"

	"image-jobs/internal/domain"
	"image-jobs/internal/usecase/processor"
)

type jobRepository interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, resultKey string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type fileRepository interface {
	PutObject(ctx context.Context, key string, data []byte, contentType, fileName string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

type imageProcessor interface {
	Process(ctx context.Context, task *domain.ProcessingTask, data []byte) (*processor.Output, error)
}
