package search

import (
	"errors"
	"fmt"
)

// ErrPageUnavailable marks a page request that failed after all retries or
// returned an unusable payload. Aggregation treats it as "stop paginating,
// keep what was gathered" rather than a fatal condition.
var ErrPageUnavailable = errors.New("search page unavailable")

// TransientError wraps a network or timeout failure that is retried with
// backoff before surfacing as ErrPageUnavailable.
type TransientError struct {
	Page int
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error on page %d: %v", e.Page, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// pageUnavailable builds the terminal error for a page, preserving the
// underlying cause for logs.
func pageUnavailable(page int, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: page %d", ErrPageUnavailable, page)
	}
	return fmt.Errorf("%w: page %d: %w", ErrPageUnavailable, page, cause)
}
