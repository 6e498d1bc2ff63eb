package db

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable covers every failure to reach or query the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned by the profile stores for unknown ids.
	ErrNotFound = errors.New("not found")
)

// Unavailable wraps err as ErrStorageUnavailable, keeping the cause
// reachable through errors.Is (context.DeadlineExceeded for example).
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
