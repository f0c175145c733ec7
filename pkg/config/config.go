// Package config loads and validates the hooksync configuration file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"hooksync/pkg/github"
)

const (
	// DefaultPath is the configuration file read when none is given
	DefaultPath = "config.yaml"
	// TokenEnvVar is consulted for accounts that carry no token of their own
	TokenEnvVar = "GITHUB_TOKEN"
)

// Notification channel names
const (
	ChannelDiscord = "discord"
	ChannelSlack   = "slack"
	ChannelTeams   = "teams"
	ChannelZulip   = "zulip"
	ChannelZabbix  = "zabbix"
)

// KnownChannels lists every supported notification channel
var KnownChannels = []string{ChannelDiscord, ChannelSlack, ChannelTeams, ChannelZulip, ChannelZabbix}

// Config represents the hooksync configuration
type Config struct {
	GitHub        GitHubConfig        `yaml:"github"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Logging       LoggingConfig       `yaml:"logging"`
	Webhooks      []github.Webhook    `yaml:"webhooks"`
	Organizations []AccountConfig     `yaml:"organizations"`
	Users         []AccountConfig     `yaml:"users"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// GitHubConfig represents API access settings
type GitHubConfig struct {
	APIBaseURL string `yaml:"api_base_url" default:"https://api.github.com/"`
	PerPage    int    `yaml:"per_page" default:"100"`
}

// ReconcileConfig controls reconciliation behavior
type ReconcileConfig struct {
	UpdatePolicy string `yaml:"update_policy" default:"ignore"`
	SkipArchived *bool  `yaml:"skip_archived,omitempty" default:"true"`
}

// SkipArchivedRepos returns whether archived repositories are left untouched
func (r ReconcileConfig) SkipArchivedRepos() bool {
	return r.SkipArchived == nil || *r.SkipArchived
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
}

// AccountConfig represents one organization or user
type AccountConfig struct {
	Name         string           `yaml:"name"`
	Token        string           `yaml:"token,omitempty"`
	Webhooks     []github.Webhook `yaml:"webhooks,omitempty"`
	ExcludeRepos []string         `yaml:"exclude_repos,omitempty"`
}

// NotificationsConfig represents the notification channels
type NotificationsConfig struct {
	Channels []string       `yaml:"channels"`
	Discord  WebhookChannel `yaml:"discord,omitempty"`
	Slack    WebhookChannel `yaml:"slack,omitempty"`
	Teams    WebhookChannel `yaml:"teams,omitempty"`
	Zulip    ZulipConfig    `yaml:"zulip,omitempty"`
	Zabbix   ZabbixConfig   `yaml:"zabbix,omitempty"`
}

// Enabled reports whether the named channel is configured
func (n NotificationsConfig) Enabled(channel string) bool {
	for _, name := range n.Channels {
		if name == channel {
			return true
		}
	}
	return false
}

// WebhookChannel represents a chat service reached through incoming webhooks
type WebhookChannel struct {
	CompletionURL string `yaml:"completion_url"`
	ErrorURL      string `yaml:"error_url"`
}

// ZulipConfig represents Zulip stream messaging settings
type ZulipConfig struct {
	Site        string `yaml:"site"`
	Email       string `yaml:"email"`
	APIKey      string `yaml:"api_key"`
	Stream      string `yaml:"stream"`
	ErrorStream string `yaml:"error_stream,omitempty"`
	Topic       string `yaml:"topic" default:"hooksync"`
}

// ZabbixConfig represents Zabbix trapper settings
type ZabbixConfig struct {
	Server string `yaml:"server"`
	Host   string `yaml:"host"`
	Key    string `yaml:"key"`
}

// Load reads, defaults and validates the configuration at path
func Load(path string) (*Config, error) {
	fstat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %s", path)
	}
	if fstat.IsDir() {
		return nil, errors.Errorf("configuration file %s is a directory", path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load configuration file %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Errors: []FieldError{{Field: "<root>", Message: err.Error()}}}
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply configuration defaults")
	}
	if cfg.Notifications.Zulip.ErrorStream == "" {
		cfg.Notifications.Zulip.ErrorStream = cfg.Notifications.Zulip.Stream
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every required key and returns a *ConfigurationError listing all problems
func (c *Config) Validate() error {
	problems := &ConfigurationError{}

	if u, err := url.Parse(c.GitHub.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems.Add("github.api_base_url", c.GitHub.APIBaseURL, "must be an absolute URL")
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > github.MaxPerPage {
		problems.Add("github.per_page", fmt.Sprint(c.GitHub.PerPage), fmt.Sprintf("must be between 1 and %d", github.MaxPerPage))
	}
	if !github.UpdatePolicy(c.Reconcile.UpdatePolicy).Valid() {
		problems.Add("reconcile.update_policy", c.Reconcile.UpdatePolicy, "must be one of ignore, update, recreate")
	}
	if !oneOf(c.Logging.Level, "trace", "debug", "info", "warn", "error") {
		problems.Add("logging.level", c.Logging.Level, "must be one of trace, debug, info, warn, error")
	}
	if !oneOf(c.Logging.Format, "json", "text") {
		problems.Add("logging.format", c.Logging.Format, "must be json or text")
	}

	validateWebhooks(problems, "webhooks", c.Webhooks)

	if len(c.Organizations) == 0 && len(c.Users) == 0 {
		problems.Add("organizations", "", "at least one organization or user is required")
	}
	validateAccounts(problems, "organizations", c.Organizations)
	validateAccounts(problems, "users", c.Users)

	c.validateNotifications(problems)

	if problems.HasErrors() {
		return problems
	}
	return nil
}

func validateAccounts(problems *ConfigurationError, field string, accounts []AccountConfig) {
	seen := make(map[string]bool)
	for i, account := range accounts {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if strings.TrimSpace(account.Name) == "" {
			problems.Add(prefix+".name", "", "is required")
		} else if seen[account.Name] {
			problems.Add(prefix+".name", account.Name, "is listed more than once")
		}
		seen[account.Name] = true

		if resolveToken(account.Token) == "" {
			problems.Add(prefix+".token", "", fmt.Sprintf("is required when %s is not set", TokenEnvVar))
		}
		validateWebhooks(problems, prefix+".webhooks", account.Webhooks)
	}
}

func validateWebhooks(problems *ConfigurationError, field string, webhooks []github.Webhook) {
	for i, webhook := range webhooks {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if webhook.URL == "" {
			problems.Add(prefix+".url", "", "is required")
		} else if u, err := url.Parse(webhook.URL); err != nil || u.Host == "" || !oneOf(u.Scheme, "http", "https") {
			problems.Add(prefix+".url", webhook.URL, "must be an absolute http(s) URL")
		}
		if len(webhook.Events) == 0 {
			problems.Add(prefix+".events", "", "at least one event is required")
		}
		if webhook.ContentType != "" && !oneOf(webhook.ContentType, "json", "form") {
			problems.Add(prefix+".content_type", webhook.ContentType, "must be json or form")
		}
	}
}

func (c *Config) validateNotifications(problems *ConfigurationError) {
	n := c.Notifications
	for i, channel := range n.Channels {
		if !oneOf(channel, KnownChannels...) {
			problems.Add(fmt.Sprintf("notifications.channels[%d]", i), channel, "unknown channel, expected one of "+strings.Join(KnownChannels, ", "))
		}
	}

	for _, channel := range []struct {
		name   string
		config WebhookChannel
	}{
		{ChannelDiscord, n.Discord},
		{ChannelSlack, n.Slack},
		{ChannelTeams, n.Teams},
	} {
		if !n.Enabled(channel.name) {
			continue
		}
		requireURL(problems, "notifications."+channel.name+".completion_url", channel.config.CompletionURL)
		requireURL(problems, "notifications."+channel.name+".error_url", channel.config.ErrorURL)
	}

	if n.Enabled(ChannelZulip) {
		requireURL(problems, "notifications.zulip.site", n.Zulip.Site)
		requireValue(problems, "notifications.zulip.email", n.Zulip.Email)
		requireValue(problems, "notifications.zulip.api_key", n.Zulip.APIKey)
		requireValue(problems, "notifications.zulip.stream", n.Zulip.Stream)
	}

	if n.Enabled(ChannelZabbix) {
		requireValue(problems, "notifications.zabbix.server", n.Zabbix.Server)
		requireValue(problems, "notifications.zabbix.host", n.Zabbix.Host)
		requireValue(problems, "notifications.zabbix.key", n.Zabbix.Key)
	}
}

func requireValue(problems *ConfigurationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		problems.Add(field, "", "is required")
	}
}

func requireURL(problems *ConfigurationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		problems.Add(field, "", "is required")
		return
	}
	if u, err := url.Parse(value); err != nil || u.Scheme == "" || u.Host == "" {
		problems.Add(field, value, "must be an absolute URL")
	}
}

func oneOf(value string, allowed ...string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}

// resolveToken falls back to the GITHUB_TOKEN environment variable
func resolveToken(token string) string {
	if token = strings.TrimSpace(token); token != "" {
		return token
	}
	return strings.TrimSpace(os.Getenv(TokenEnvVar))
}

// Accounts returns the configured accounts, organizations first, in configured order
func (c *Config) Accounts() []github.Account {
	accounts := make([]github.Account, 0, len(c.Organizations)+len(c.Users))
	for _, org := range c.Organizations {
		accounts = append(accounts, org.account(github.AccountKindOrganization))
	}
	for _, user := range c.Users {
		accounts = append(accounts, user.account(github.AccountKindUser))
	}
	return accounts
}

func (a AccountConfig) account(kind github.AccountKind) github.Account {
	return github.Account{
		Name:         a.Name,
		Kind:         kind,
		Token:        resolveToken(a.Token),
		Webhooks:     a.Webhooks,
		ExcludeRepos: a.ExcludeRepos,
	}
}

// SelectAccounts returns the accounts whose names are listed, keeping configured order.
// An empty selection returns every account.
func (c *Config) SelectAccounts(names []string) ([]github.Account, error) {
	accounts := c.Accounts()
	if len(names) == 0 {
		return accounts, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var selected []github.Account
	for _, account := range accounts {
		if wanted[account.Name] {
			selected = append(selected, account)
			delete(wanted, account.Name)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, name := range names {
			if wanted[name] {
				missing = append(missing, name)
			}
		}
		return nil, errors.Errorf("unknown account(s): %s", strings.Join(missing, ", "))
	}
	return selected, nil
}

// Warnings returns non-fatal problems worth surfacing before a run
func (c *Config) Warnings() []string {
	var warnings []string
	for _, account := range c.Accounts() {
		if len(github.MergeWebhooks(c.Webhooks, account.Webhooks)) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s has no desired webhooks: every webhook on its repositories will be deleted", account))
		}
	}
	if len(c.Notifications.Channels) == 0 {
		warnings = append(warnings, "no notification channels configured")
	}
	return warnings
}

// SaveToPath writes the configuration as YAML, creating parent directories as needed
func (c *Config) SaveToPath(path string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}
