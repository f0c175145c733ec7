package github

import (
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// loggingRoundTripper traces every request sent to the API.
// Request bodies are not logged since webhook payloads carry secrets.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

// RoundTrip logs the request and response
func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	l.logger.Trace().Str("method", req.Method).Str("url", req.URL.String()).Msg("sending request")
	resp, err := l.base.RoundTrip(req)
	if err != nil {
		l.logger.Trace().Err(err).Msg("failed to send request")
		return nil, err
	}
	l.logger.Trace().Str("status", resp.Status).Msg("received response")
	return resp, nil
}

// newHTTPClient builds the transport chain: secondary rate-limit waiter, bearer token, logging.
func newHTTPClient(token string, base http.RoundTripper, logger zerolog.Logger) (*http.Client, error) {
	if base == nil {
		base = http.DefaultTransport
	}

	var transport http.RoundTripper = &loggingRoundTripper{base: base, logger: logger}
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   transport,
		}
	}

	return github_ratelimit.NewRateLimitWaiterClient(transport,
		github_ratelimit.WithLimitDetectedCallback(func(cb *github_ratelimit.CallbackContext) {
			event := logger.Warn()
			if cb.SleepUntil != nil {
				event = event.Dur("wait", time.Until(*cb.SleepUntil))
			}
			event.Msg("secondary rate limit detected, waiting")
		}),
	)
}
