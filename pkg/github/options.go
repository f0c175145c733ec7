package github

import (
	"net/http"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public GitHub REST endpoint
const DefaultBaseURL = "https://api.github.com/"

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	baseURL   string
	perPage   int
	logger    zerolog.Logger
	transport http.RoundTripper
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		baseURL: DefaultBaseURL,
		perPage: DefaultPerPage,
		logger:  zerolog.Nop(),
	}
}

// WithBaseURL sets the REST API base URL, e.g. for GitHub Enterprise Server.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithPerPage sets the page size used for list operations.
func WithPerPage(perPage int) Option {
	return func(o *clientOptions) {
		o.perPage = normalizePerPage(perPage)
	}
}

// WithLogger sets the logger used for call-level logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTransport sets the base HTTP transport below authentication and rate-limit handling.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}
