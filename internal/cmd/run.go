package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hooksync/internal/logging"
	"hooksync/pkg/config"
	"hooksync/pkg/github"
	"hooksync/pkg/notify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile repository webhooks for every configured account",
	Long: `Reconcile the webhooks of every repository owned by the configured accounts.

For each organization and user the desired set is the global webhook list merged
with the account's own list (the account wins on a matching URL). Repositories are
processed one at a time and a failing repository or account never stops the run.

The outcome is reported to the notification channels listed under
notifications.channels once the run has finished.

Examples:
  # Reconcile every account
  hooksync run

  # Preview the changes without touching GitHub
  hooksync run --dry-run

  # Reconcile selected accounts only
  hooksync run --account acme --account octocat`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "show planned changes without applying them")
	runCmd.Flags().StringSlice("account", nil, "only reconcile the named accounts (repeatable)")
	bindFlags(runCmd, "dry-run", "account")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, verbosity(), cmd.ErrOrStderr())
	for _, warning := range cfg.Warnings() {
		logger.Warn().Msg(warning)
	}

	accounts, err := cfg.SelectAccounts(settings.GetStringSlice("account"))
	if err != nil {
		return err
	}

	sink, err := notify.FromConfig(cfg.Notifications, notify.WithLogger(logger))
	if err != nil {
		return err
	}

	dryRun := settings.GetBool("dry-run")
	runner := github.NewRunner(
		clientFactory(cfg.GitHub, logger),
		github.WithNotifier(sink),
		github.WithRunnerLogger(logger),
		github.WithReconcilerOptions(
			github.WithUpdatePolicy(github.UpdatePolicy(cfg.Reconcile.UpdatePolicy)),
			github.WithDryRun(dryRun),
			github.WithSkipArchived(cfg.Reconcile.SkipArchivedRepos()),
		),
	)

	logger.Info().
		Int("accounts", len(accounts)).
		Bool("dry_run", dryRun).
		Strs("channels", sink.Channels()).
		Msg("Starting webhook sync")

	result, runErr := runner.Run(cmd.Context(), accounts, cfg.Webhooks)
	if result != nil {
		displayRunResult(cmd.OutOrStdout(), result, dryRun)
	}
	return runErr
}

// clientFactory builds one API client per account using the account's own token
func clientFactory(cfg config.GitHubConfig, logger zerolog.Logger) github.ClientFactory {
	return func(account github.Account) (github.APIClient, error) {
		client, err := github.NewClient(account.Token,
			github.WithBaseURL(cfg.APIBaseURL),
			github.WithPerPage(cfg.PerPage),
			github.WithLogger(logger.With().Str("account", account.String()).Logger()),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// displayRunResult prints the per-repository changes in a human-readable form
func displayRunResult(out io.Writer, result *github.RunResult, dryRun bool) {
	if dryRun {
		fmt.Fprintln(out, "🔍 Dry-run mode: no changes were applied")
	}

	for _, account := range result.Accounts {
		fmt.Fprintf(out, "\n📦 %s (%d repositories", account.Account, len(account.Repositories))
		if len(account.Skipped) > 0 {
			fmt.Fprintf(out, ", %d skipped", len(account.Skipped))
		}
		fmt.Fprintln(out, ")")

		for _, repo := range account.Repositories {
			displayRepository(out, repo)
		}
	}

	for _, name := range sortedKeys(result.AccountErrors) {
		fmt.Fprintf(out, "\n❌ %s: %v\n", name, result.AccountErrors[name])
	}

	fmt.Fprintf(out, "\n📊 %s\n", result.Summary())
}

func displayRepository(out io.Writer, repo *github.ReconciliationResult) {
	changes := len(repo.Created) + len(repo.Updated) + len(repo.Deleted)
	switch {
	case repo.Failed():
		fmt.Fprintf(out, "  ❌ %s: %v\n", repo.FullName(), repo.Err)
	case changes == 0:
		fmt.Fprintf(out, "  ✓ %s: up to date\n", repo.FullName())
		return
	default:
		fmt.Fprintf(out, "  ~ %s\n", repo.FullName())
	}

	for _, url := range repo.Created {
		fmt.Fprintf(out, "    + %s\n", url)
	}
	for _, url := range repo.Updated {
		fmt.Fprintf(out, "    ~ %s\n", url)
	}
	for _, url := range repo.Deleted {
		fmt.Fprintf(out, "    - %s\n", url)
	}
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
