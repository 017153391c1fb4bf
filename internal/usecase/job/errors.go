package job

import (
	"errors"

	"image-jobs/internal/codec"
	repoJob "image-jobs/internal/repository/job"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrMalformedPayload   = codec.ErrMalformedPayload
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrRetrievalFailed    = errors.New("retrieval failed")
	ErrStatusStoreFailed  = errors.New("status store failed")
	ErrEnqueueFailed      = errors.New("failed to enqueue task")
	ErrJobNotFound        = repoJob.ErrJobNotFound
)
