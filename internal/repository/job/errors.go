package job

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateJob      = errors.New("job already exists")
	ErrObjectNotFound    = errors.New("object not found")
	ErrStorageError      = errors.New("storage error")
	ErrEmptyObjectKey    = errors.New("empty object key")
)
