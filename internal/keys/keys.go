// Package keys names objects in the blob store after the job they belong to.
//
// A key depends only on the job id and the role of the blob, never on its
// content, so the location of a job's output is known before the output exists.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

const (
	inputPrefix  = "uploads"
	outputPrefix = "results"
)

var (
	ErrInvalidRole  = errors.New("invalid key role")
	ErrInvalidJobID = errors.New("invalid job id")
	ErrUnknownKey   = errors.New("key is not a job key")
)

func (r Role) prefix() (string, error) {
	switch r {
	case RoleInput:
		return inputPrefix, nil
	case RoleOutput:
		return outputPrefix, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
}

// For returns the object key of the job's blob in the given role.
func For(jobID string, role Role) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	prefix, err := role.prefix()
	if err != nil {
		return "", err
	}
	return prefix + "/" + jobID, nil
}

// Parse is the inverse of For. It is meant for logs and diagnostics.
func Parse(key string) (Role, string, error) {
	prefix, jobID, ok := strings.Cut(key, "/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var role Role
	switch prefix {
	case inputPrefix:
		role = RoleInput
	case outputPrefix:
		role = RoleOutput
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if err := validateJobID(jobID); err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return role, jobID, nil
}

func validateJobID(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidJobID)
	}
	if strings.ContainsAny(jobID, "/\\") || jobID == "." || jobID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return nil
}
