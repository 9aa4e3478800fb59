package docload

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchError indicates a web source could not be retrieved: transport
// failure, non-success HTTP status, or a fetch deadline. Transient;
// callers may retry with backoff.
type FetchError struct {
	URL    string
	Status int // HTTP status when one was received, else 0
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the fetch failed by exceeding its deadline,
// which distinguishes retryable timeouts from other fetch failures.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ParseError indicates a source document is malformed (broken YAML).
// Fatal for that source; batch ingestion skips it and continues.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
