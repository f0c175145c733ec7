package github

import "context"

// APIClient defines the repository and webhook operations used by reconciliation
type APIClient interface {
	// Repository operations
	ListRepositories(ctx context.Context, account Account) ([]Repository, error)

	// Webhook operations
	ListWebhooks(ctx context.Context, owner, repo string) ([]RemoteWebhook, error)
	CreateWebhook(ctx context.Context, owner, repo string, webhook Webhook) (*RemoteWebhook, error)
	UpdateWebhook(ctx context.Context, owner, repo string, webhookID int64, webhook Webhook) (*RemoteWebhook, error)
	DeleteWebhook(ctx context.Context, owner, repo string, webhookID int64) error
}

// ClientFactory builds an APIClient for one account
type ClientFactory func(account Account) (APIClient, error)

// ChangeType represents the type of change in a reconciliation plan
type ChangeType string

const (
	ChangeTypeCreate   ChangeType = "create"
	ChangeTypeUpdate   ChangeType = "update"
	ChangeTypeRecreate ChangeType = "recreate"
	ChangeTypeDelete   ChangeType = "delete"
)

// UpdatePolicy controls what happens to a webhook whose URL exists on both sides but
// whose settings differ.
type UpdatePolicy string

const (
	// UpdatePolicyIgnore keeps the existing webhook; only the URL is compared
	UpdatePolicyIgnore UpdatePolicy = "ignore"
	// UpdatePolicyUpdate edits the existing webhook in place
	UpdatePolicyUpdate UpdatePolicy = "update"
	// UpdatePolicyRecreate deletes the existing webhook and creates it again
	UpdatePolicyRecreate UpdatePolicy = "recreate"
)

// Valid reports whether the policy is one of the known values
func (p UpdatePolicy) Valid() bool {
	switch p {
	case UpdatePolicyIgnore, UpdatePolicyUpdate, UpdatePolicyRecreate:
		return true
	default:
		return false
	}
}

// ReconciliationPlan is the ordered set of webhook changes for one repository
type ReconciliationPlan struct {
	Owner     string          `json:"owner"`
	Repo      string          `json:"repo"`
	Webhooks  []WebhookChange `json:"webhooks,omitempty"`
	Unchanged []string        `json:"unchanged,omitempty"`
}

// HasChanges returns true if the plan contains any changes
func (p *ReconciliationPlan) HasChanges() bool {
	return len(p.Webhooks) > 0
}

// Count returns the number of planned changes of the given type
func (p *ReconciliationPlan) Count(changeType ChangeType) int {
	count := 0
	for _, change := range p.Webhooks {
		if change.Type == changeType {
			count++
		}
	}
	return count
}

// WebhookChange represents a change to webhook configuration
type WebhookChange struct {
	Type   ChangeType     `json:"type"`
	URL    string         `json:"url"`
	Before *RemoteWebhook `json:"before,omitempty"`
	After  *Webhook       `json:"after,omitempty"`
}
