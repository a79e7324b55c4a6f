package clientstore

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable is returned when the data file or the counter
	// file can't be opened, read or written. The underlying OS error is
	// wrapped as well.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptState is returned when the counter file doesn't hold a
	// non-negative integer or the data file doesn't parse.
	ErrCorruptState = errors.New("corrupt state")

	// ErrInvalidField is returned by Insert for a field that contains
	// a tab or a line break.
	ErrInvalidField = errors.New("invalid field")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func corruptError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
}
