package poller

import "errors"

var (
	ErrJobFailed      = errors.New("job failed")
	ErrTimedOut       = errors.New("timed out waiting for job")
	ErrJobNotFound    = errors.New("job not found")
	ErrCancelled      = errors.New("polling cancelled")
	ErrRetrieval      = errors.New("failed to retrieve result")
	ErrAlreadyStarted = errors.New("poller already started")
	ErrEmptyJobID     = errors.New("empty job id")
	ErrNoJob          = errors.New("status query returned no job")
)
