package blame

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited matches every RateLimitedError.
var ErrRateLimited = errors.New("rate limited")

// ErrUnexpectedFormat is wrapped by APIErrors raised for malformed provider responses.
var ErrUnexpectedFormat = errors.New("response is not in expected format")

// APIError is a failed provider call for a single file. Code is the HTTP
// status, or 0 when no response was received.
type APIError struct {
	Code int
	Text string
	Err  error
}

func (e *APIError) Error() string {
	msg := e.Text
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("api error %d: %s", e.Code, msg)
	}
	return "api error: " + msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// FormatError reports a response whose shape could not be parsed.
func FormatError(err error) *APIError {
	if err == nil {
		return &APIError{Text: ErrUnexpectedFormat.Error(), Err: ErrUnexpectedFormat}
	}
	return &APIError{Text: ErrUnexpectedFormat.Error(), Err: fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)}
}

// RateLimitedError aborts a batch that would exhaust the provider quota.
type RateLimitedError struct {
	Provider  string
	Remaining int
	Limit     int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("approaching %s API rate limit (%d of %d requests left)", e.Provider, e.Remaining, e.Limit)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
