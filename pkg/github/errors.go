package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// APIError is returned for any API call that does not complete with 200, 201 or 204.
// Body holds the raw response body for diagnostics.
type APIError struct {
	Type       ErrorType `json:"type"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	Body       string    `json:"body,omitempty"`
	Cause      error     `json:"-"`
	Retryable  bool      `json:"retryable"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error for %s %s (status %d): %s", e.Type, e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error for %s %s: %s", e.Type, e.Method, e.Endpoint, e.Message)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// IsNotFound reports whether err is an APIError of kind not_found
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}

// IsRateLimit reports whether err is an APIError of kind rate_limit
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeRateLimit
}

// newStatusError builds an APIError from a completed response with an unexpected status
func newStatusError(method, endpoint string, statusCode int, body []byte, cause error) *APIError {
	text := strings.TrimSpace(string(body))
	apiErr := &APIError{
		Type:       classifyStatus(statusCode, text),
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    text,
		Body:       string(body),
		Cause:      cause,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	apiErr.Retryable = isRetryableErrorType(apiErr.Type)
	return apiErr
}

// wrapTransportError converts an error returned by go-github into an APIError
func wrapTransportError(method, endpoint string, resp *github.Response, err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		rateErr     *github.RateLimitError
		abuseErr    *github.AbuseRateLimitError
		acceptedErr *github.AcceptedError
	)
	switch {
	case errors.As(err, &rateErr):
		wrapped := newStatusError(method, endpoint, statusOf(rateErr.Response), readBody(rateErr.Response), err)
		wrapped.Type = ErrorTypeRateLimit
		wrapped.Message = fmt.Sprintf("rate limit exceeded, resets at %v", rateErr.Rate.Reset.Time)
		wrapped.Retryable = true
		return wrapped
	case errors.As(err, &abuseErr):
		wrapped := newStatusError(method, endpoint, statusOf(abuseErr.Response), readBody(abuseErr.Response), err)
		wrapped.Type = ErrorTypeRateLimit
		wrapped.Message = "secondary rate limit exceeded: " + abuseErr.Message
		wrapped.Retryable = true
		return wrapped
	case errors.As(err, &acceptedErr):
		return newStatusError(method, endpoint, http.StatusAccepted, acceptedErr.Raw, err)
	}

	if resp != nil && resp.Response != nil {
		return newStatusError(method, endpoint, resp.StatusCode, readBody(resp.Response), err)
	}

	if isNetworkError(err) {
		return &APIError{
			Type:      ErrorTypeNetwork,
			Method:    method,
			Endpoint:  endpoint,
			Message:   err.Error(),
			Cause:     err,
			Retryable: true,
		}
	}

	return &APIError{
		Type:     ErrorTypeUnknown,
		Method:   method,
		Endpoint: endpoint,
		Message:  err.Error(),
		Cause:    err,
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// readBody reads a response body that go-github has already buffered for error reporting
func readBody(resp *http.Response) []byte {
	if resp == nil || resp.Body == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return data
}

// classifyStatus maps an HTTP status and body to an ErrorType
func classifyStatus(statusCode int, body string) ErrorType {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrorTypeAuth
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(body), "rate limit") {
			return ErrorTypeRateLimit
		}
		return ErrorTypePermission
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isRetryableErrorType determines if an error type is generally retryable
func isRetryableErrorType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// PaginationIntegrityError is returned when a page holds more items than requested,
// which leaves the end of the collection undetectable.
type PaginationIntegrityError struct {
	Endpoint string `json:"endpoint"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	Received int    `json:"received"`
}

// Error implements the error interface
func (e *PaginationIntegrityError) Error() string {
	return fmt.Sprintf("pagination integrity error for %s: page %d returned %d items, expected at most %d",
		e.Endpoint, e.Page, e.Received, e.PerPage)
}

// PartialFailureError represents a run where some accounts or repositories failed
type PartialFailureError struct {
	Succeeded []string         `json:"succeeded"`
	Failed    map[string]error `json:"failed"`
	Message   string           `json:"message"`
}

// Error implements the error interface
func (e *PartialFailureError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("partial failure: %d succeeded, %d failed", len(e.Succeeded), len(e.Failed))
}

// NewPartialFailureError creates a new partial failure error
func NewPartialFailureError(succeeded []string, failed map[string]error) *PartialFailureError {
	message := fmt.Sprintf("Run completed with failures: %d succeeded, %d failed",
		len(succeeded), len(failed))

	return &PartialFailureError{
		Succeeded: succeeded,
		Failed:    failed,
		Message:   message,
	}
}

// GetFailedOperations returns the failed targets in sorted order
func (e *PartialFailureError) GetFailedOperations() []string {
	operations := make([]string, 0, len(e.Failed))
	for op := range e.Failed {
		operations = append(operations, op)
	}
	sort.Strings(operations)
	return operations
}

// GetSucceededOperations returns the targets that completed successfully
func (e *PartialFailureError) GetSucceededOperations() []string {
	return e.Succeeded
}
