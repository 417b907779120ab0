package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the user service; the HTTP layer maps them to statuses.
var (
	ErrAlreadyExists      = errors.New("user already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("identity holds no session token")
)

// StorageError wraps a credential-store failure. Storage failures are
// surfaced to the caller unmodified beyond this wrapper, never retried.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

// RejectedInputError reports input validation failures field by field.
// User-correctable; the message names every failing field.
type RejectedInputError struct {
	Fields map[string]string
}

func (e *RejectedInputError) Error() string {
	if len(e.Fields) == 0 {
		return "rejected input"
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "rejected input: " + strings.Join(parts, "; ")
}

// IsRejectedInput reports whether err is a validation failure and returns it.
func IsRejectedInput(err error) (*RejectedInputError, bool) {
	var rejected *RejectedInputError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
