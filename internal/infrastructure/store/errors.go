package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidationRejected = errors.New("rejected by backend constraint")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUpload             = errors.New("upload failed")
)

// Classify wraps a driver error into one of the store sentinels so callers
// can test it with errors.Is. Errors already classified are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidationRejected) ||
		errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrUpload) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		// data exception, integrity constraint violation
		case "22", "23":
			return fmt.Errorf("%w: %w", ErrValidationRejected, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}
