package github

import "fmt"

// AccountKind identifies the kind of owner an account represents
type AccountKind string

const (
	AccountKindOrganization AccountKind = "organization"
	AccountKindUser         AccountKind = "user"
)

// Account is a configured organization or user whose repositories are reconciled
type Account struct {
	Name         string      `json:"name"`
	Kind         AccountKind `json:"kind"`
	Token        string      `json:"-"`
	Webhooks     []Webhook   `json:"webhooks,omitempty"`
	ExcludeRepos []string    `json:"exclude_repos,omitempty"`
}

// String returns "kind/name"
func (a Account) String() string {
	return fmt.Sprintf("%s/%s", a.Kind, a.Name)
}

// reposEndpoint returns the repository listing endpoint for the account kind
func (a Account) reposEndpoint() (string, error) {
	switch a.Kind {
	case AccountKindOrganization:
		return fmt.Sprintf("orgs/%s/repos", a.Name), nil
	case AccountKindUser:
		return fmt.Sprintf("users/%s/repos", a.Name), nil
	default:
		return "", fmt.Errorf("unsupported account kind %q for %s", a.Kind, a.Name)
	}
}

// excludes reports whether the repository is excluded for this account
func (a Account) excludes(repo string) bool {
	for _, name := range a.ExcludeRepos {
		if name == repo {
			return true
		}
	}
	return false
}

// Repository represents a GitHub repository owned by an account
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Archived bool   `json:"archived"`
}

// Webhook represents a desired repository webhook
type Webhook struct {
	URL         string   `json:"url" yaml:"url"`
	Events      []string `json:"events" yaml:"events"`
	Active      *bool    `json:"active,omitempty" yaml:"active,omitempty"`
	ContentType string   `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Secret      string   `json:"-" yaml:"secret,omitempty"`
}

// IsActive returns the active flag, defaulting to true when unset
func (w Webhook) IsActive() bool {
	return w.Active == nil || *w.Active
}

// contentType returns the payload content type, defaulting to json
func (w Webhook) contentType() string {
	if w.ContentType == "" {
		return "json"
	}
	return w.ContentType
}

// RemoteWebhook represents a webhook as reported by the hosting API
type RemoteWebhook struct {
	ID          int64    `json:"id"`
	URL         string   `json:"url"`
	Events      []string `json:"events"`
	Active      bool     `json:"active"`
	ContentType string   `json:"content_type,omitempty"`
}
