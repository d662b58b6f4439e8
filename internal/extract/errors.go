package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownScheme is returned when a descriptor names a scheme that no
	// format adapter registered.
	ErrUnknownScheme = errors.New("unknown scheme")

	// ErrConstructionFailed wraps the error of a store constructor.
	ErrConstructionFailed = errors.New("store construction failed")

	// ErrMalformedDescriptor is returned for unparsable connection descriptors.
	ErrMalformedDescriptor = errors.New("malformed connection descriptor")

	// ErrCancelled is returned when the job's context is done. The returned
	// error also wraps the context's error.
	ErrCancelled = errors.New("extraction cancelled")

	// ErrNotFound is returned by registry lookups and by stores for
	// missing folders.
	ErrNotFound = errors.New("not found")
)

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
