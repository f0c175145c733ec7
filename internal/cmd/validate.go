package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hooksync/pkg/config"
	"hooksync/pkg/github"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without calling the GitHub API.

The command reports every missing or malformed setting at once, prints warnings for
risky but valid settings (such as an account whose desired webhook set is empty) and
shows the merged desired webhooks of each account.

Examples:
  hooksync validate
  hooksync validate --config /etc/hooksync/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	fmt.Fprintf(out, "🔍 Validating configuration file: %s\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "✓ Configuration is valid")

	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(out, "⚠️  %s\n", warning)
	}

	for _, account := range cfg.Accounts() {
		displayDesiredWebhooks(out, account, github.MergeWebhooks(cfg.Webhooks, account.Webhooks))
	}

	if len(cfg.Notifications.Channels) > 0 {
		fmt.Fprintf(out, "\n🔔 Notification channels: %s\n", strings.Join(cfg.Notifications.Channels, ", "))
	}
	return nil
}

func displayDesiredWebhooks(out io.Writer, account github.Account, webhooks []github.Webhook) {
	fmt.Fprintf(out, "\n📦 %s: %d desired webhook(s)\n", account, len(webhooks))
	if len(account.ExcludeRepos) > 0 {
		fmt.Fprintf(out, "  excluded repositories: %s\n", strings.Join(account.ExcludeRepos, ", "))
	}

	for _, webhook := range webhooks {
		state := ""
		if !webhook.IsActive() {
			state = " (inactive)"
		}
		fmt.Fprintf(out, "  • %s [%s]%s\n", webhook.URL, strings.Join(webhook.Events, ", "), state)
	}
}
