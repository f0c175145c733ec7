package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Notifier receives the outcome of a run
type Notifier interface {
	ErrorReporter
	NotifyCompletion(ctx context.Context, summary string) error
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithNotifier sets the notification sink for failures and the final outcome
func WithNotifier(notifier Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithRunnerLogger sets the runner logger
func WithRunnerLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithReconcilerOptions sets the options applied to every per-account reconciler
func WithReconcilerOptions(opts ...ReconcilerOption) RunnerOption {
	return func(r *Runner) {
		r.reconcilerOpts = append(r.reconcilerOpts, opts...)
	}
}

// Runner drives a full reconciliation run over a list of accounts
type Runner struct {
	factory        ClientFactory
	notifier       Notifier
	reconcilerOpts []ReconcilerOption
	logger         zerolog.Logger
}

// NewRunner creates a runner that builds one client per account with factory
func NewRunner(factory ClientFactory, opts ...RunnerOption) *Runner {
	r := &Runner{
		factory: factory,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunResult aggregates the outcome of all accounts in a run
type RunResult struct {
	Accounts      []*AccountResult `json:"accounts"`
	AccountErrors map[string]error `json:"-"`
}

// HasFailures reports whether any account or repository failed
func (r *RunResult) HasFailures() bool {
	if len(r.AccountErrors) > 0 {
		return true
	}
	for _, account := range r.Accounts {
		if len(account.FailedRepositories()) > 0 {
			return true
		}
	}
	return false
}

// Summary returns a one-line description of the run
func (r *RunResult) Summary() string {
	var repos, created, updated, deleted, failed int
	for _, account := range r.Accounts {
		for _, repo := range account.Repositories {
			repos++
			created += len(repo.Created)
			updated += len(repo.Updated)
			deleted += len(repo.Deleted)
			if repo.Failed() {
				failed++
			}
		}
	}

	return fmt.Sprintf("Webhook sync finished: %d accounts (%d failed), %d repositories (%d failed), %d webhooks created, %d updated, %d deleted",
		len(r.Accounts)+len(r.AccountErrors), len(r.AccountErrors), repos, failed, created, updated, deleted)
}

// Run reconciles the accounts sequentially in the given order.
//
// A failing account or repository never stops the run. Once all accounts are processed the
// notifier receives exactly one completion or error notification, and a *PartialFailureError
// is returned if anything failed.
func (r *Runner) Run(ctx context.Context, accounts []Account, global []Webhook) (*RunResult, error) {
	result := &RunResult{AccountErrors: make(map[string]error)}
	var succeeded []string
	failed := make(map[string]error)

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logger := r.logger.With().Str("account", account.String()).Logger()
		logger.Info().Msg("Reconciling account")

		accountResult, err := r.reconcileAccount(ctx, account, global, logger)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Error().Err(err).Msg("Error processing account")
			result.AccountErrors[account.String()] = err
			failed[account.String()] = err
			r.reportError(ctx, fmt.Sprintf("Error processing account %s: %v", account, err))
			continue
		}

		result.Accounts = append(result.Accounts, accountResult)
		for _, repo := range accountResult.Repositories {
			if repo.Failed() {
				failed[repo.FullName()] = repo.Err
			} else {
				succeeded = append(succeeded, repo.FullName())
			}
		}
	}

	summary := result.Summary()
	r.logger.Info().Msg(summary)

	if len(failed) > 0 {
		partial := NewPartialFailureError(succeeded, failed)
		r.reportError(ctx, fmt.Sprintf("%s. Failed: %s", summary, strings.Join(partial.GetFailedOperations(), ", ")))
		return result, partial
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyCompletion(ctx, summary); err != nil {
			return result, fmt.Errorf("failed to send completion notification: %w", err)
		}
	}
	return result, nil
}

func (r *Runner) reconcileAccount(ctx context.Context, account Account, global []Webhook, logger zerolog.Logger) (*AccountResult, error) {
	client, err := r.factory(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", account, err)
	}

	opts := make([]ReconcilerOption, 0, len(r.reconcilerOpts)+2)
	opts = append(opts, r.reconcilerOpts...)
	opts = append(opts, WithReconcilerLogger(logger))
	if r.notifier != nil {
		opts = append(opts, WithErrorReporter(r.notifier))
	}

	return NewReconciler(client, opts...).ReconcileAccountWebhooks(ctx, account, global)
}

func (r *Runner) reportError(ctx context.Context, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyError(ctx, message); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to send error notification")
	}
}
