package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hooksync/pkg/github"
)

const fullConfig = `github:
  api_base_url: https://github.example.com/api/v3/
  per_page: 50
reconcile:
  update_policy: update
  skip_archived: false
logging:
  level: debug
  format: text
webhooks:
  - url: https://ci.example.com/hook
    events: [push, pull_request]
  - url: https://chat.example.com/hook
    events: [release]
    active: false
organizations:
  - name: acme
    token: ghp_acme
    webhooks:
      - url: https://chat.example.com/hook
        events: [release, push]
    exclude_repos: [legacy]
  - name: widgets
    token: ghp_widgets
users:
  - name: octocat
    token: ghp_octo
notifications:
  channels: [discord, zulip, zabbix]
  discord:
    completion_url: https://discord.com/api/webhooks/1/a
    error_url: https://discord.com/api/webhooks/2/b
  zulip:
    site: https://chat.example.zulipchat.com
    email: bot@example.com
    api_key: secret
    stream: ops
  zabbix:
    server: zabbix.example.com:10051
    host: hooksync
    key: hooksync.status
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func configurationError(t *testing.T, err error) *ConfigurationError {
	t.Helper()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
	return cfgErr
}

func fields(cfgErr *ConfigurationError) []string {
	var result []string
	for _, fieldErr := range cfgErr.Errors {
		result = append(result, fieldErr.Field)
	}
	return result
}

func TestLoad(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://github.example.com/api/v3/", cfg.GitHub.APIBaseURL)
	assert.Equal(t, 50, cfg.GitHub.PerPage)
	assert.Equal(t, "update", cfg.Reconcile.UpdatePolicy)
	assert.False(t, cfg.Reconcile.SkipArchivedRepos())
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "text"}, cfg.Logging)
	require.Len(t, cfg.Webhooks, 2)
	assert.False(t, cfg.Webhooks[1].IsActive())
	assert.Equal(t, "ops", cfg.Notifications.Zulip.ErrorStream)
	assert.Equal(t, "hooksync", cfg.Notifications.Zulip.Topic)

	accounts := cfg.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, github.Account{
		Name:         "acme",
		Kind:         github.AccountKindOrganization,
		Token:        "ghp_acme",
		Webhooks:     []github.Webhook{{URL: "https://chat.example.com/hook", Events: []string{"release", "push"}}},
		ExcludeRepos: []string{"legacy"},
	}, accounts[0])
	assert.Equal(t, "widgets", accounts[1].Name)
	assert.Equal(t, github.AccountKindUser, accounts[2].Kind)
	assert.Equal(t, "octocat", accounts[2].Name)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
users:
  - name: octocat
    token: ghp_octo
webhooks:
  - url: https://ci.example.com/hook
    events: [push]
`))
	require.NoError(t, err)

	assert.Equal(t, github.DefaultBaseURL, cfg.GitHub.APIBaseURL)
	assert.Equal(t, github.DefaultPerPage, cfg.GitHub.PerPage)
	assert.Equal(t, string(github.UpdatePolicyIgnore), cfg.Reconcile.UpdatePolicy)
	assert.True(t, cfg.Reconcile.SkipArchivedRepos())
	assert.Equal(t, LoggingConfig{Level: "info", Format: "json"}, cfg.Logging)
	assert.Empty(t, cfg.Notifications.Channels)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())

	assert.ErrorContains(t, err, "is a directory")
	assert.Contains(t, fmt.Sprintf("%+v", err), "hooksync/pkg/config.Load", "error should carry a stack trace")
}

func TestSaveToPath_Failure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	err := (&Config{}).SaveToPath(filepath.Join(blocker, "config.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
	assert.Contains(t, fmt.Sprintf("%+v", err), "hooksync/pkg/config.(*Config).SaveToPath")
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("organizations: [name: acme"))

	cfgErr := configurationError(t, err)
	assert.Equal(t, []string{"<root>"}, fields(cfgErr))
}

func TestValidate(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "no accounts",
			content:  `webhooks: [{url: "https://a.example.com", events: [push]}]`,
			expected: []string{"organizations"},
		},
		{
			name: "account problems",
			content: `
organizations:
  - name: ""
    token: x
  - name: acme
  - name: acme
    token: y
`,
			expected: []string{"organizations[0].name", "organizations[1].token", "organizations[2].name"},
		},
		{
			name: "webhook problems",
			content: `
webhooks:
  - events: [push]
  - url: ftp://files.example.com
    events: [push]
  - url: https://ok.example.com
  - url: https://ok.example.com/form
    events: [push]
    content_type: xml
users:
  - name: octocat
    token: t
    webhooks:
      - url: https://user.example.com
`,
			expected: []string{
				"webhooks[0].url",
				"webhooks[1].url",
				"webhooks[2].events",
				"webhooks[3].content_type",
				"users[0].webhooks[0].events",
			},
		},
		{
			name: "settings problems",
			content: `
github: {api_base_url: "not-a-url", per_page: 500}
reconcile: {update_policy: merge}
logging: {level: loud, format: xml}
users: [{name: octocat, token: t}]
`,
			expected: []string{"github.api_base_url", "github.per_page", "reconcile.update_policy", "logging.level", "logging.format"},
		},
		{
			name: "notification problems",
			content: `
users: [{name: octocat, token: t}]
notifications:
  channels: [slack, teams, zulip, zabbix, pager]
  slack: {completion_url: "https://hooks.slack.com/a"}
  teams: {completion_url: "not a url", error_url: "https://outlook.office.com/b"}
  zulip: {site: "https://zulip.example.com"}
`,
			expected: []string{
				"notifications.channels[4]",
				"notifications.slack.error_url",
				"notifications.teams.completion_url",
				"notifications.zulip.email",
				"notifications.zulip.api_key",
				"notifications.zulip.stream",
				"notifications.zabbix.server",
				"notifications.zabbix.host",
				"notifications.zabbix.key",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))

			cfgErr := configurationError(t, err)
			assert.Equal(t, tt.expected, fields(cfgErr))
		})
	}
}

func TestTokenFallback(t *testing.T) {
	t.Setenv(TokenEnvVar, "ghp_from_env")

	cfg, err := Parse([]byte(`
organizations:
  - name: acme
  - name: widgets
    token: ghp_widgets
`))
	require.NoError(t, err)

	accounts := cfg.Accounts()
	assert.Equal(t, "ghp_from_env", accounts[0].Token)
	assert.Equal(t, "ghp_widgets", accounts[1].Token)
}

func TestSelectAccounts(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		accounts, err := cfg.SelectAccounts(nil)
		require.NoError(t, err)
		assert.Len(t, accounts, 3)
	})

	t.Run("subset keeps configured order", func(t *testing.T) {
		accounts, err := cfg.SelectAccounts([]string{"octocat", "acme"})
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "acme", accounts[0].Name)
		assert.Equal(t, "octocat", accounts[1].Name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := cfg.SelectAccounts([]string{"acme", "ghost"})
		assert.EqualError(t, err, "unknown account(s): ghost")
	})
}

func TestWarnings(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	cfg, err := Parse([]byte(`
organizations:
  - name: acme
    token: a
    webhooks: [{url: "https://a.example.com", events: [push]}]
users:
  - name: octocat
    token: b
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"user/octocat has no desired webhooks: every webhook on its repositories will be deleted",
		"no notification channels configured",
	}, cfg.Warnings())
}

func TestConfigurationError_Error(t *testing.T) {
	single := &ConfigurationError{}
	single.Add("github.per_page", "0", "must be between 1 and 100")
	assert.Equal(t, "invalid configuration: field 'github.per_page' (value: 0): must be between 1 and 100", single.Error())

	multiple := &ConfigurationError{}
	multiple.Add("users[0].name", "", "is required")
	multiple.Add("users[0].token", "", "is required")
	assert.Equal(t, "invalid configuration (2 problems): field 'users[0].name': is required; field 'users[0].token': is required", multiple.Error())
}

func TestSaveToPath(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	original, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "hooksync.yaml")
	require.NoError(t, original.SaveToPath(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Accounts(), reloaded.Accounts())
	assert.Equal(t, original.Notifications, reloaded.Notifications)
}
