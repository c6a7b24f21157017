package scraper

import (
	"errors"
	"fmt"
)

// ErrNoDetail reports that an entity has no detail page: no snapshot file
// offline, no listing link online.
var ErrNoDetail = errors.New("no detail page")

// Fetch failures carry a category used for metrics labels and retry
// decisions. Each type wraps the underlying transport, file or status error.
type categorized interface {
	error
	category() string
}

func describe(category string, err error) string {
	if err == nil {
		return category
	}
	return category + ": " + err.Error()
}

// ErrTimeout is a request that ran past the configured timeout.
type ErrTimeout struct{ Err error }

func (e ErrTimeout) Error() string    { return describe(e.category(), e.Err) }
func (e ErrTimeout) Unwrap() error    { return e.Err }
func (e ErrTimeout) category() string { return "timeout" }

// ErrConnection is a dial or read failure before any status was received.
type ErrConnection struct{ Err error }

func (e ErrConnection) Error() string    { return describe(e.category(), e.Err) }
func (e ErrConnection) Unwrap() error    { return e.Err }
func (e ErrConnection) category() string { return "connection" }

// ErrForbidden is an HTTP 403, usually the site refusing the user agent.
type ErrForbidden struct{ Err error }

func (e ErrForbidden) Error() string    { return describe(e.category(), e.Err) }
func (e ErrForbidden) Unwrap() error    { return e.Err }
func (e ErrForbidden) category() string { return "forbidden" }

// ErrNotFound is a page that does not exist: HTTP 404 online, a missing
// snapshot file offline.
type ErrNotFound struct{ Err error }

func (e ErrNotFound) Error() string    { return describe(e.category(), e.Err) }
func (e ErrNotFound) Unwrap() error    { return e.Err }
func (e ErrNotFound) category() string { return "not_found" }

// ErrRateLimited is an HTTP 429.
type ErrRateLimited struct{ Err error }

func (e ErrRateLimited) Error() string    { return describe(e.category(), e.Err) }
func (e ErrRateLimited) Unwrap() error    { return e.Err }
func (e ErrRateLimited) category() string { return "rate_limited" }

// ErrServer is a 5xx response.
type ErrServer struct {
	Status int
	Err    error
}

func (e ErrServer) Error() string {
	return describe(fmt.Sprintf("server %d", e.Status), e.Err)
}
func (e ErrServer) Unwrap() error    { return e.Err }
func (e ErrServer) category() string { return "server" }

// ErrorType returns the metrics label for err: its category, "other" for
// uncategorized errors and "unknown" for nil.
func ErrorType(err error) string {
	return errorTypeLabel(err)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var c categorized
	if errors.As(err, &c) {
		return c.category()
	}
	return "other"
}

// retryable reports whether another attempt may succeed. Missing pages and
// refusals are final.
func retryable(err error) bool {
	switch errorTypeLabel(err) {
	case "timeout", "connection", "rate_limited", "server":
		return true
	}
	return false
}
