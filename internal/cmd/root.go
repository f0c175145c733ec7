package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hooksync/pkg/config"
)

// EnvPrefix prefixes every environment variable bound to a flag
const EnvPrefix = "HOOKSYNC"

var settings = newSettings()

var rootCmd = &cobra.Command{
	Use:   "hooksync",
	Short: "Keep GitHub repository webhooks in sync with a declarative configuration",
	Long: `Hooksync reconciles the webhooks of every repository owned by the configured
GitHub organizations and users against a desired set declared in YAML.

Missing webhooks are created, webhooks that are no longer declared are deleted and
the outcome of each run is reported to the configured notification channels.

Every flag can also be set through a HOOKSYNC_* environment variable,
for example HOOKSYNC_CONFIG or HOOKSYNC_DRY_RUN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// bindFlags exposes the named flags of cmd through the shared settings
func bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("unknown flag %q", name))
		}
		_ = settings.BindPFlag(name, flag)
	}
}

func configPath() string {
	return settings.GetString("config")
}

func verbosity() int {
	return settings.GetInt("verbose")
}

// Execute runs the root command until it returns or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "path to the configuration file")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (repeatable)")
	bindFlags(rootCmd, "config", "verbose")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}
