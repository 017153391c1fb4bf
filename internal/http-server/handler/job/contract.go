package job

import (
	"context"

	"image-jobs/internal/domain"
	job_uc "image-jobs/internal/usecase/job"
)

type jobUsecase interface {
	SubmitJob(ctx context.Context, req job_uc.SubmitRequest) (*domain.Job, error)
	GetStatus(ctx context.Context, id string) (*domain.Job, error)
	StoreInput(ctx context.Context, req job_uc.StoreInputRequest) (string, error)
	Retrieve(ctx context.Context, key string) (*job_uc.Retrieval, error)
}
