package poller

import (
	"context"

	"image-jobs/internal/domain"
)

// StatusSource reads the current record of a job. Implementations return an
// error wrapping ErrJobNotFound when the job does not exist.
type StatusSource interface {
	JobStatus(ctx context.Context, id string) (*domain.Job, error)
}

type Retriever interface {
	Download(ctx context.Context, key string) ([]byte, error)
}
