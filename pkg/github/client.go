package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"
)

// Client implements the APIClient interface using the GitHub REST API
type Client struct {
	exec    Executor
	perPage int
	logger  zerolog.Logger
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string, opts ...Option) (*Client, error) {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	baseURL, err := parseBaseURL(o.baseURL)
	if err != nil {
		return nil, err
	}

	httpClient, err := newHTTPClient(token, o.transport, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limited HTTP client: %w", err)
	}

	ghClient := github.NewClient(httpClient)
	ghClient.BaseURL = baseURL

	return &Client{
		exec:    NewExecutor(ghClient, o.logger),
		perPage: o.perPage,
		logger:  o.logger,
	}, nil
}

// NewClientWithExecutor creates a client on top of an existing executor
func NewClientWithExecutor(exec Executor, opts ...Option) *Client {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		exec:    exec,
		perPage: o.perPage,
		logger:  o.logger,
	}
}

// parseBaseURL validates the API base URL and ensures the trailing slash go-github expects
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme and host are required", raw)
	}
	return u, nil
}

// ListRepositories lists every repository owned by the account
func (c *Client) ListRepositories(ctx context.Context, account Account) ([]Repository, error) {
	endpoint, err := account.reposEndpoint()
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("account", account.String()).Msg("Listing repositories")

	repos, err := FetchAll[*github.Repository](ctx, c.exec, http.MethodGet, endpoint, nil, c.perPage)
	if err != nil {
		return nil, err
	}

	result := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		result = append(result, convertRepository(repo, account.Name))
	}

	c.logger.Debug().Str("account", account.String()).Int("count", len(result)).Msg("Listed repositories")
	return result, nil
}

// ListWebhooks lists all webhooks for a repository
func (c *Client) ListWebhooks(ctx context.Context, owner, repo string) ([]RemoteWebhook, error) {
	c.logger.Debug().Str("owner", owner).Str("repo", repo).Msg("Listing webhooks")

	hooks, err := FetchAll[*github.Hook](ctx, c.exec, http.MethodGet, hooksEndpoint(owner, repo), nil, c.perPage)
	if err != nil {
		return nil, err
	}

	result := make([]RemoteWebhook, 0, len(hooks))
	for _, hook := range hooks {
		result = append(result, convertHook(hook))
	}
	return result, nil
}

// CreateWebhook creates a new webhook for a repository
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, webhook Webhook) (*RemoteWebhook, error) {
	c.logger.Info().Str("owner", owner).Str("repo", repo).Str("url", webhook.URL).Msg("Creating webhook")

	var hook github.Hook
	if err := c.exec.Execute(ctx, http.MethodPost, hooksEndpoint(owner, repo), nil, newHookRequest(webhook), &hook); err != nil {
		return nil, err
	}

	created := convertHook(&hook)
	return &created, nil
}

// UpdateWebhook updates an existing webhook
func (c *Client) UpdateWebhook(ctx context.Context, owner, repo string, webhookID int64, webhook Webhook) (*RemoteWebhook, error) {
	c.logger.Info().Str("owner", owner).Str("repo", repo).Int64("id", webhookID).Str("url", webhook.URL).Msg("Updating webhook")

	endpoint := fmt.Sprintf("%s/%d", hooksEndpoint(owner, repo), webhookID)
	var hook github.Hook
	if err := c.exec.Execute(ctx, http.MethodPatch, endpoint, nil, newHookRequest(webhook), &hook); err != nil {
		return nil, err
	}

	updated := convertHook(&hook)
	return &updated, nil
}

// DeleteWebhook deletes a webhook from a repository.
// A webhook that no longer exists surfaces as a not_found APIError.
func (c *Client) DeleteWebhook(ctx context.Context, owner, repo string, webhookID int64) error {
	c.logger.Info().Str("owner", owner).Str("repo", repo).Int64("id", webhookID).Msg("Deleting webhook")

	endpoint := fmt.Sprintf("%s/%d", hooksEndpoint(owner, repo), webhookID)
	return c.exec.Execute(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

func hooksEndpoint(owner, repo string) string {
	return fmt.Sprintf("repos/%s/%s/hooks", owner, repo)
}

// hookRequest is the create/edit payload for a repository webhook
type hookRequest struct {
	Name   string             `json:"name"`
	Active bool               `json:"active"`
	Events []string           `json:"events"`
	Config *github.HookConfig `json:"config"`
}

func newHookRequest(webhook Webhook) *hookRequest {
	config := &github.HookConfig{
		URL:         github.String(webhook.URL),
		ContentType: github.String(webhook.contentType()),
	}

	if webhook.Secret != "" {
		config.Secret = github.String(webhook.Secret)
	}

	events := webhook.Events
	if events == nil {
		events = []string{}
	}

	return &hookRequest{
		Name:   "web",
		Active: webhook.IsActive(),
		Events: events,
		Config: config,
	}
}

// convertRepository converts a GitHub repository to our internal type
func convertRepository(repo *github.Repository, fallbackOwner string) Repository {
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner = fallbackOwner
	}
	return Repository{
		ID:       repo.GetID(),
		Name:     repo.GetName(),
		Owner:    owner,
		Archived: repo.GetArchived(),
	}
}

// convertHook converts a GitHub hook to our internal type
func convertHook(hook *github.Hook) RemoteWebhook {
	return RemoteWebhook{
		ID:          hook.GetID(),
		URL:         hook.GetConfig().GetURL(),
		Events:      hook.Events,
		Active:      hook.GetActive(),
		ContentType: hook.GetConfig().GetContentType(),
	}
}
