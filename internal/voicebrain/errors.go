package voicebrain

import (
	"errors"
	"fmt"
)

const defaultQuotaMessage = "Limit reached. Please upgrade to Pro."

// QuotaExceededError is returned when the server rejects an upload because the
// account's plan limit is used up. Retrying will fail the same way until the
// quota resets or the plan changes.
type QuotaExceededError struct {
	StatusCode int
	Message    string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.UserMessage())
}

// UserMessage is the text to show the user.
func (e *QuotaExceededError) UserMessage() string {
	if e.Message == "" {
		return defaultQuotaMessage
	}
	return e.Message
}

// NetworkError wraps a transport failure: the request never produced an HTTP
// response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is any non-2xx response that is not a quota rejection.
type ServerError struct {
	StatusCode int
	Path       string
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// IsQuotaExceeded reports whether err is (or wraps) a quota rejection.
func IsQuotaExceeded(err error) bool {
	var quota *QuotaExceededError
	return errors.As(err, &quota)
}

// IsNetwork reports whether err is (or wraps) a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var srv *ServerError
	return errors.As(err, &srv) && srv.StatusCode == 404
}
