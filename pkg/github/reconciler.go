package github

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// ErrorReporter receives per-repository and per-account failures as they happen
type ErrorReporter interface {
	NotifyError(ctx context.Context, message string) error
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithUpdatePolicy sets how webhooks present on both sides with differing settings are handled
func WithUpdatePolicy(policy UpdatePolicy) ReconcilerOption {
	return func(r *Reconciler) {
		if policy.Valid() {
			r.policy = policy
		}
	}
}

// WithDryRun makes the reconciler plan without applying any change
func WithDryRun(dryRun bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithSkipArchived controls whether archived repositories are left untouched
func WithSkipArchived(skip bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.skipArchived = skip
	}
}

// WithErrorReporter sets where repository failures are reported
func WithErrorReporter(reporter ErrorReporter) ReconcilerOption {
	return func(r *Reconciler) {
		r.reporter = reporter
	}
}

// WithReconcilerLogger sets the reconciler logger
func WithReconcilerLogger(logger zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// Reconciler brings the webhooks of repositories in line with a desired set
type Reconciler struct {
	client       APIClient
	policy       UpdatePolicy
	dryRun       bool
	skipArchived bool
	reporter     ErrorReporter
	logger       zerolog.Logger
}

// NewReconciler creates a new reconciler instance
func NewReconciler(client APIClient, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		client:       client,
		policy:       UpdatePolicyIgnore,
		skipArchived: true,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconciliationResult records what happened to one repository
type ReconciliationResult struct {
	Owner     string   `json:"owner"`
	Repo      string   `json:"repo"`
	Created   []string `json:"created,omitempty"`
	Updated   []string `json:"updated,omitempty"`
	Deleted   []string `json:"deleted,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
	Err       error    `json:"-"`
}

// FullName returns "owner/repo"
func (r *ReconciliationResult) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Failed reports whether the repository could not be fully reconciled
func (r *ReconciliationResult) Failed() bool {
	return r.Err != nil
}

// AccountResult aggregates the repository results of one account
type AccountResult struct {
	Account      string                  `json:"account"`
	Repositories []*ReconciliationResult `json:"repositories"`
	Skipped      []string                `json:"skipped,omitempty"`
}

// FailedRepositories returns the results of repositories that failed
func (a *AccountResult) FailedRepositories() []*ReconciliationResult {
	var failed []*ReconciliationResult
	for _, result := range a.Repositories {
		if result.Failed() {
			failed = append(failed, result)
		}
	}
	return failed
}

// Plan compares the desired set with the webhooks currently configured on the repository.
// Creates come first in desired order, then updates or recreates, then deletes in remote order.
func (r *Reconciler) Plan(ctx context.Context, owner, repo string, desired []Webhook) (*ReconciliationPlan, error) {
	actual, err := r.client.ListWebhooks(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for %s/%s: %w", owner, repo, err)
	}

	plan := &ReconciliationPlan{Owner: owner, Repo: repo}

	// URL is the identity of a webhook; only the first remote hook per URL is matched
	actualMap := make(map[string]*RemoteWebhook, len(actual))
	for i := range actual {
		if _, exists := actualMap[actual[i].URL]; !exists {
			actualMap[actual[i].URL] = &actual[i]
		}
	}

	desiredMap := make(map[string]*Webhook, len(desired))
	for i := range desired {
		desiredMap[desired[i].URL] = &desired[i]
	}

	var creates, updates, deletes []WebhookChange
	for i := range desired {
		want := &desired[i]
		if desiredMap[want.URL] != want {
			continue
		}

		current, exists := actualMap[want.URL]
		if !exists {
			creates = append(creates, WebhookChange{Type: ChangeTypeCreate, URL: want.URL, After: want})
			continue
		}

		if r.policy == UpdatePolicyIgnore || webhookMatches(current, want) {
			plan.Unchanged = append(plan.Unchanged, want.URL)
			continue
		}

		changeType := ChangeTypeUpdate
		if r.policy == UpdatePolicyRecreate {
			changeType = ChangeTypeRecreate
		}
		updates = append(updates, WebhookChange{Type: changeType, URL: want.URL, Before: current, After: want})
	}

	for i := range actual {
		current := &actual[i]
		if _, exists := desiredMap[current.URL]; exists {
			if actualMap[current.URL] != current {
				plan.Unchanged = append(plan.Unchanged, current.URL)
			}
			continue
		}
		deletes = append(deletes, WebhookChange{Type: ChangeTypeDelete, URL: current.URL, Before: current})
	}

	plan.Webhooks = append(plan.Webhooks, creates...)
	plan.Webhooks = append(plan.Webhooks, updates...)
	plan.Webhooks = append(plan.Webhooks, deletes...)
	return plan, nil
}

// Apply executes the plan in order. The first failure aborts the remaining changes;
// changes already made are kept.
func (r *Reconciler) Apply(ctx context.Context, plan *ReconciliationPlan) (*ReconciliationResult, error) {
	result := &ReconciliationResult{
		Owner:     plan.Owner,
		Repo:      plan.Repo,
		Unchanged: plan.Unchanged,
	}

	for _, change := range plan.Webhooks {
		if err := r.applyWebhookChange(ctx, plan.Owner, plan.Repo, change); err != nil {
			result.Err = fmt.Errorf("failed to %s webhook %s on %s/%s: %w", change.Type, change.URL, plan.Owner, plan.Repo, err)
			return result, result.Err
		}

		r.logger.Info().
			Str("repository", result.FullName()).
			Str("url", change.URL).
			Str("action", string(change.Type)).
			Msg("Webhook reconciled")

		switch change.Type {
		case ChangeTypeCreate:
			result.Created = append(result.Created, change.URL)
		case ChangeTypeUpdate, ChangeTypeRecreate:
			result.Updated = append(result.Updated, change.URL)
		case ChangeTypeDelete:
			result.Deleted = append(result.Deleted, change.URL)
		}
	}

	return result, nil
}

func (r *Reconciler) applyWebhookChange(ctx context.Context, owner, repo string, change WebhookChange) error {
	switch change.Type {
	case ChangeTypeCreate:
		_, err := r.client.CreateWebhook(ctx, owner, repo, *change.After)
		return err
	case ChangeTypeUpdate:
		_, err := r.client.UpdateWebhook(ctx, owner, repo, change.Before.ID, *change.After)
		return err
	case ChangeTypeRecreate:
		if err := r.client.DeleteWebhook(ctx, owner, repo, change.Before.ID); err != nil {
			return err
		}
		_, err := r.client.CreateWebhook(ctx, owner, repo, *change.After)
		return err
	case ChangeTypeDelete:
		return r.client.DeleteWebhook(ctx, owner, repo, change.Before.ID)
	default:
		return fmt.Errorf("unsupported webhook change type: %s", change.Type)
	}
}

// ReconcileRepository plans and, unless in dry-run mode, applies the desired webhooks
// on one repository. Failures are recorded in the result rather than returned.
func (r *Reconciler) ReconcileRepository(ctx context.Context, owner, repo string, desired []Webhook) *ReconciliationResult {
	plan, err := r.Plan(ctx, owner, repo, desired)
	if err != nil {
		return &ReconciliationResult{Owner: owner, Repo: repo, Err: err}
	}

	for _, url := range plan.Unchanged {
		r.logger.Debug().
			Str("repository", owner+"/"+repo).
			Str("url", url).
			Msg("Webhook unchanged")
	}

	if r.dryRun {
		return r.planResult(plan)
	}

	result, _ := r.Apply(ctx, plan)
	return result
}

// planResult describes a plan as if it had been applied
func (r *Reconciler) planResult(plan *ReconciliationPlan) *ReconciliationResult {
	result := &ReconciliationResult{
		Owner:     plan.Owner,
		Repo:      plan.Repo,
		Unchanged: plan.Unchanged,
		DryRun:    true,
	}
	for _, change := range plan.Webhooks {
		r.logger.Info().
			Str("repository", result.FullName()).
			Str("url", change.URL).
			Str("action", string(change.Type)).
			Msg("Webhook change planned (dry run)")

		switch change.Type {
		case ChangeTypeCreate:
			result.Created = append(result.Created, change.URL)
		case ChangeTypeUpdate, ChangeTypeRecreate:
			result.Updated = append(result.Updated, change.URL)
		case ChangeTypeDelete:
			result.Deleted = append(result.Deleted, change.URL)
		}
	}
	return result
}

// ReconcileAccountWebhooks reconciles every repository owned by the account against the
// union of the global and account webhook lists.
//
// Failing to list the account's repositories is returned as an error. A failing repository
// is reported and the remaining repositories are still processed.
func (r *Reconciler) ReconcileAccountWebhooks(ctx context.Context, account Account, global []Webhook) (*AccountResult, error) {
	logger := r.logger.With().Str("account", account.String()).Logger()
	desired := MergeWebhooks(global, account.Webhooks)
	if len(desired) == 0 {
		logger.Warn().Msg("Desired webhook set is empty; every webhook on the account's repositories will be deleted")
	}

	repos, err := r.client.ListRepositories(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", account, err)
	}

	result := &AccountResult{Account: account.String()}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fullName := repo.Owner + "/" + repo.Name
		if account.excludes(repo.Name) {
			logger.Info().Str("repository", fullName).Msg("Skipping excluded repository")
			result.Skipped = append(result.Skipped, fullName)
			continue
		}
		if repo.Archived && r.skipArchived {
			logger.Info().Str("repository", fullName).Msg("Skipping archived repository")
			result.Skipped = append(result.Skipped, fullName)
			continue
		}

		logger.Info().Str("repository", fullName).Msg("Processing repository")
		repoResult := r.ReconcileRepository(ctx, repo.Owner, repo.Name, desired)
		result.Repositories = append(result.Repositories, repoResult)

		if repoResult.Failed() {
			logger.Error().Err(repoResult.Err).Str("repository", fullName).Msg("Error processing repository")
			r.report(ctx, fmt.Sprintf("Error processing repository %s: %v", fullName, repoResult.Err))
		}
	}

	return result, nil
}

func (r *Reconciler) report(ctx context.Context, message string) {
	if r.reporter == nil {
		return
	}
	if err := r.reporter.NotifyError(ctx, message); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to send error notification")
	}
}

// webhookMatches reports whether the remote webhook already has the desired settings.
// Event order is not significant.
func webhookMatches(current *RemoteWebhook, desired *Webhook) bool {
	if current.Active != desired.IsActive() {
		return false
	}
	if current.ContentType != "" && current.ContentType != desired.contentType() {
		return false
	}
	return stringSetsEqual(current.Events, desired.Events)
}

func stringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := make([]string, len(a))
	sortedB := make([]string, len(b))
	copy(sortedA, a)
	copy(sortedB, b)
	sort.Strings(sortedA)
	sort.Strings(sortedB)

	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
