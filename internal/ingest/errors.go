package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TimeoutError marks a fetch that exceeded its deadline, distinct from
// permanent failures so callers can choose to skip rather than abort.
type TimeoutError struct {
	Source string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch timeout for %s: %v", e.Source, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is (or wraps) a fetch timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// SourceError records a single source's failure inside a batch fetch.
// The batch itself still succeeds with partial results.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
