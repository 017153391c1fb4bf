package client

import (
	"errors"
	"fmt"

	"image-jobs/internal/poller"
)

var (
	ErrJobNotFound = poller.ErrJobNotFound
	ErrEmptyID     = errors.New("empty id")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}
