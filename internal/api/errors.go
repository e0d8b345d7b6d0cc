package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrUnauthorized matches any 401 from the backend.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound matches any 404 from the backend.
	ErrNotFound = errors.New("api: not found")
)

// APIError is a non-2xx response. Message is the backend's text verbatim
// when it sent one.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Endpoint, e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == 401
	case ErrNotFound:
		return e.Status == 404
	}
	return false
}

// NetworkError means no response was received at all.
type NetworkError struct {
	BaseURL string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to %s timed out: %v", e.BaseURL, e.Err)
	}
	return fmt.Sprintf("cannot reach backend at %s, check that it is running: %v", e.BaseURL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func networkError(base string, err error) *NetworkError {
	var ne net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
	return &NetworkError{BaseURL: base, Timeout: timeout, Err: err}
}

// backendMessage extracts a human message from an error body. The backend
// answers with plain text ("You have already reviewed this order"), with
// {"message": ...} or with {"error": ...}.
func backendMessage(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		return body.Error
	}
	return strings.Trim(text, `"`)
}
