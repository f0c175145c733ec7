package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "error with status",
			err: &APIError{
				Type:       ErrorTypeNotFound,
				Method:     http.MethodDelete,
				Endpoint:   "repos/acme/api/hooks/7",
				StatusCode: http.StatusNotFound,
				Message:    "Not Found",
			},
			expected: "not_found error for DELETE repos/acme/api/hooks/7 (status 404): Not Found",
		},
		{
			name: "error without status",
			err: &APIError{
				Type:     ErrorTypeNetwork,
				Method:   http.MethodGet,
				Endpoint: "orgs/acme/repos",
				Message:  "dial tcp: connection refused",
			},
			expected: "network error for GET orgs/acme/repos: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &APIError{Type: ErrorTypeNetwork, Cause: cause}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), cause))
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedType  ErrorType
		retryable     bool
		expectedValue string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, ErrorTypeAuth, false, `{"message":"Bad credentials"}`},
		{"forbidden", http.StatusForbidden, `{"message":"Must have admin rights"}`, ErrorTypePermission, false, `{"message":"Must have admin rights"}`},
		{"forbidden rate limit", http.StatusForbidden, `{"message":"API rate limit exceeded for user"}`, ErrorTypeRateLimit, true, `{"message":"API rate limit exceeded for user"}`},
		{"too many requests", http.StatusTooManyRequests, "", ErrorTypeRateLimit, true, "Too Many Requests"},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, ErrorTypeNotFound, false, `{"message":"Not Found"}`},
		{"conflict", http.StatusConflict, "", ErrorTypeConflict, false, "Conflict"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`, ErrorTypeValidation, false, `{"message":"Validation Failed"}`},
		{"bad gateway", http.StatusBadGateway, "", ErrorTypeNetwork, true, "Bad Gateway"},
		{"unexpected success", http.StatusAccepted, "", ErrorTypeUnknown, false, "Accepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newStatusError(http.MethodGet, "repos/acme/api/hooks", tt.status, []byte(tt.body), nil)

			assert.Equal(t, tt.expectedType, err.Type)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.body, err.Body)
			assert.Equal(t, tt.expectedValue, err.Message)
			assert.Equal(t, tt.retryable, err.IsRetryable())
		})
	}
}

func TestWrapTransportError(t *testing.T) {
	t.Run("error response keeps raw body", func(t *testing.T) {
		body := `{"message":"Not Found","documentation_url":"https://docs.github.com"}`
		httpResp := newHTTPResponse(http.StatusNotFound, body)
		ghErr := &github.ErrorResponse{Response: httpResp, Message: "Not Found"}

		err := wrapTransportError(http.MethodDelete, "repos/acme/api/hooks/1", &github.Response{Response: httpResp}, ghErr)

		assert.Equal(t, ErrorTypeNotFound, err.Type)
		assert.Equal(t, http.StatusNotFound, err.StatusCode)
		assert.Equal(t, body, err.Body)
		assert.Equal(t, http.MethodDelete, err.Method)
		assert.True(t, IsNotFound(err))
		assert.ErrorIs(t, err, error(ghErr))
	})

	t.Run("primary rate limit", func(t *testing.T) {
		reset := time.Now().Add(time.Hour)
		httpResp := newHTTPResponse(http.StatusForbidden, `{"message":"API rate limit exceeded"}`)
		rateErr := &github.RateLimitError{
			Rate:     github.Rate{Limit: 5000, Remaining: 0, Reset: github.Timestamp{Time: reset}},
			Response: httpResp,
			Message:  "API rate limit exceeded",
		}

		err := wrapTransportError(http.MethodGet, "orgs/acme/repos", &github.Response{Response: httpResp}, rateErr)

		assert.Equal(t, ErrorTypeRateLimit, err.Type)
		assert.Equal(t, http.StatusForbidden, err.StatusCode)
		assert.True(t, err.IsRetryable())
		assert.True(t, IsRateLimit(err))
		assert.Contains(t, err.Message, "rate limit exceeded")
	})

	t.Run("secondary rate limit", func(t *testing.T) {
		httpResp := newHTTPResponse(http.StatusForbidden, `{"message":"You have exceeded a secondary rate limit"}`)
		abuseErr := &github.AbuseRateLimitError{Response: httpResp, Message: "You have exceeded a secondary rate limit"}

		err := wrapTransportError(http.MethodPost, "repos/acme/api/hooks", nil, abuseErr)

		assert.Equal(t, ErrorTypeRateLimit, err.Type)
		assert.Contains(t, err.Message, "secondary rate limit")
	})

	t.Run("accepted response", func(t *testing.T) {
		acceptedErr := &github.AcceptedError{Raw: []byte(`{"status":"queued"}`)}

		err := wrapTransportError(http.MethodGet, "orgs/acme/repos", nil, acceptedErr)

		assert.Equal(t, http.StatusAccepted, err.StatusCode)
		assert.Equal(t, `{"status":"queued"}`, err.Body)
	})

	t.Run("network error", func(t *testing.T) {
		err := wrapTransportError(http.MethodGet, "orgs/acme/repos", nil, errors.New("dial tcp 127.0.0.1:443: connection refused"))

		assert.Equal(t, ErrorTypeNetwork, err.Type)
		assert.Zero(t, err.StatusCode)
		assert.True(t, err.IsRetryable())
	})

	t.Run("unknown error", func(t *testing.T) {
		err := wrapTransportError(http.MethodGet, "orgs/acme/repos", nil, errors.New("something odd"))

		assert.Equal(t, ErrorTypeUnknown, err.Type)
		assert.False(t, err.IsRetryable())
	})

	t.Run("existing api error is returned as is", func(t *testing.T) {
		original := &APIError{Type: ErrorTypeConflict, Method: http.MethodPatch}

		err := wrapTransportError(http.MethodGet, "ignored", nil, fmt.Errorf("context: %w", original))

		assert.Same(t, original, err)
	})
}

func TestPaginationIntegrityError(t *testing.T) {
	err := &PaginationIntegrityError{Endpoint: "repos/acme/api/hooks", Page: 2, PerPage: 10, Received: 30}

	assert.Equal(t, "pagination integrity error for repos/acme/api/hooks: page 2 returned 30 items, expected at most 10", err.Error())
}

func TestPartialFailureError(t *testing.T) {
	failed := map[string]error{
		"acme/web":         errors.New("boom"),
		"organization/foo": errors.New("bad credentials"),
	}
	err := NewPartialFailureError([]string{"acme/api"}, failed)

	require.NotNil(t, err)
	assert.Equal(t, "Run completed with failures: 1 succeeded, 2 failed", err.Error())
	assert.Equal(t, []string{"acme/web", "organization/foo"}, err.GetFailedOperations())
	assert.Equal(t, []string{"acme/api"}, err.GetSucceededOperations())

	var partial *PartialFailureError
	assert.True(t, errors.As(fmt.Errorf("run: %w", err), &partial))
}
