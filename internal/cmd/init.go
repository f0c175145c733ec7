package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hooksync/pkg/config"
	"hooksync/pkg/github"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample configuration file",
	Long: `Write a sample configuration to the path given by --config.

Tokens are left empty: accounts without a token use the GITHUB_TOKEN environment variable.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "⚠️  Configuration file already exists at: %s\n", path)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
		if !strings.EqualFold(response, "y") {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	if err := sampleConfig().SaveToPath(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "📝 Please edit the accounts, webhooks and notification channels before running hooksync.")
	return nil
}

func sampleConfig() *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{
			APIBaseURL: github.DefaultBaseURL,
			PerPage:    github.DefaultPerPage,
		},
		Reconcile: config.ReconcileConfig{
			UpdatePolicy: string(github.UpdatePolicyIgnore),
		},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
		Webhooks: []github.Webhook{
			{URL: "https://ci.example.com/github/webhook", Events: []string{"push", "pull_request"}},
		},
		Organizations: []config.AccountConfig{
			{
				Name: "your-organization",
				Webhooks: []github.Webhook{
					{URL: "https://chat.example.com/github", Events: []string{"release"}},
				},
			},
		},
	}
}
