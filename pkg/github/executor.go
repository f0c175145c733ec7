package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"
)

// Executor performs a single call against the hosting API.
// A 200 or 201 response body is decoded into v when v is non-nil, a 204 is an empty success,
// and any other outcome is returned as an *APIError.
type Executor interface {
	Execute(ctx context.Context, method, endpoint string, params url.Values, body, v any) error
}

// RESTExecutor implements Executor on top of a go-github client
type RESTExecutor struct {
	client *github.Client
	logger zerolog.Logger
}

// NewExecutor creates an executor that sends requests through the given go-github client
func NewExecutor(client *github.Client, logger zerolog.Logger) *RESTExecutor {
	return &RESTExecutor{
		client: client,
		logger: logger,
	}
}

// Execute sends one request and interprets the response status
func (e *RESTExecutor) Execute(ctx context.Context, method, endpoint string, params url.Values, body, v any) error {
	target := endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := e.client.NewRequest(method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, endpoint, err)
	}

	resp, err := e.client.BareDo(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		apiErr := wrapTransportError(method, endpoint, resp, err)
		e.logger.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", apiErr.StatusCode).
			Str("error_type", string(apiErr.Type)).
			Msg("API call failed")
		return apiErr
	}
	defer resp.Body.Close()

	e.logger.Debug().
		Str("method", method).
		Str("endpoint", target).
		Int("status", resp.StatusCode).
		Msg("API call completed")

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if v == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil && err != io.EOF {
			return fmt.Errorf("failed to decode response from %s %s: %w", method, endpoint, err)
		}
		return nil
	case http.StatusNoContent:
		return nil
	default:
		data, _ := io.ReadAll(resp.Body)
		return newStatusError(method, endpoint, resp.StatusCode, data, nil)
	}
}
