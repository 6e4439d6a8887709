package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/oracle/internal/shared"
)

// Error is a non-2xx response from the API.
type Error struct {
	Message    string
	StatusCode int
	Body       any // decoded JSON body, or nil
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Is matches [shared.ErrAPIRequest], and [shared.ErrNotAuthenticated] for 401 responses.
func (e *Error) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsClientError reports whether the status is in the 4xx range.
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Temporary reports whether retrying the request may succeed.
func (e *Error) Temporary() bool {
	return !e.IsClientError()
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newError(resp *Response) *Error {
	e := &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	if !resp.IsJSON {
		return e
	}

	e.Body = resp.JSONData
	if body, ok := resp.JSONData.(map[string]any); ok {
		if msg, ok := body["message"].(string); ok && msg != "" {
			e.Message = msg
		}
	}
	return e
}
