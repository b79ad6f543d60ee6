package ai

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrUnavailable = errors.New("ai provider unavailable: missing credentials")

type UnsupportedProviderError struct {
	Provider string
	Err      error
}

func (e *UnsupportedProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported ai provider: %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("unsupported ai provider: %s", e.Provider)
}

func (e *UnsupportedProviderError) Unwrap() error {
	return e.Err
}

// SchemaValidationError is returned once every repair attempt produced a
// payload that failed to decode or validate.
type SchemaValidationError struct {
	Attempts int
	Err      error
	Raw      string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates a provider answered HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 1
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// StatusError carries a non-2xx provider answer.
type StatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: %s: %s", e.Provider, e.Status, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500
}

func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
