package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawops/clawctl/internal/clawerr"
)

const sampleYAML = `
clawctl:
  data_root: /srv/claw/data
  build_root: /srv/claw/build
  openclaw_version: "2.1.0"
  backup:
    interval_minutes: 30
  defaults:
    model: openrouter/z-ai/glm-4.5-air:free
    skills:
      gemini: true
users:
  - name: alice
    channels:
      slack:
        enabled: true
        bot_token_secret: slack_bot_token
        app_token_secret: slack_app_token
    secrets:
      openrouter_api_key: openrouter_api_key
  - name: bob
    agent:
      model: anthropic/claude-sonnet-4.5
    skills:
      gog:
        enabled: true
        email: bob@example.com
      gemini: false
    secrets: {}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clawctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/srv/claw/data", cfg.Clawctl.DataRoot)
	assert.Equal(t, "openclaw-instance:2.1.0", cfg.Clawctl.ImageTag())
	assert.Equal(t, 30, cfg.Clawctl.Backup.IntervalMinutes)
	assert.True(t, cfg.Clawctl.Backup.IsEnabled())
	require.Len(t, cfg.Users, 2)

	alice := cfg.User("alice")
	require.NotNil(t, alice)
	assert.True(t, alice.Channels.Slack.Enabled)
	assert.Equal(t, "openrouter/z-ai/glm-4.5-air:free", cfg.EffectiveModel(alice))

	bob := cfg.User("bob")
	require.NotNil(t, bob)
	assert.Equal(t, "anthropic/claude-sonnet-4.5", cfg.EffectiveModel(bob))

	assert.Nil(t, cfg.User("carol"))
	assert.Equal(t, []string{"alice", "bob"}, cfg.Usernames())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, clawerr.ErrConfig))
}

func TestSkillResolution(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	alice := cfg.User("alice")
	bob := cfg.User("bob")

	// Defaults enable gemini; alice is silent, bob overrides it off.
	assert.True(t, cfg.SkillEnabled(alice, "gemini"))
	assert.False(t, cfg.SkillEnabled(bob, "gemini"))

	// gog is off by default, bob enables it with an email.
	assert.False(t, cfg.SkillEnabled(alice, "gog"))
	assert.True(t, cfg.SkillEnabled(bob, "gog"))
	assert.Equal(t, "bob@example.com", bob.Skills.Gog.Email)

	// Unset everywhere means off.
	assert.False(t, cfg.SkillEnabled(alice, "coding_agent"))
}

func TestSecretsPreserveDocumentOrder(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
clawctl: {}
users:
  - name: alice
    secrets:
      zeta_key: zeta_key
      alpha_key: alpha_key
      mid_key: mid_file
`))
	require.NoError(t, err)

	pairs := cfg.User("alice").Secrets.Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, "zeta_key", pairs[0].LogicalName)
	assert.Equal(t, "alpha_key", pairs[1].LogicalName)
	assert.Equal(t, "mid_key", pairs[2].LogicalName)
	assert.Equal(t, "mid_file", pairs[2].Filename)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad username", "clawctl: {}\nusers:\n  - name: '-bad'\n"},
		{"uppercase username", "clawctl: {}\nusers:\n  - name: 'Alice'\n"},
		{"duplicate user", "clawctl: {}\nusers:\n  - name: alice\n  - name: alice\n"},
		{"interval too small", "clawctl:\n  backup:\n    interval_minutes: 2\n"},
		{"interval too large", "clawctl:\n  backup:\n    interval_minutes: 120\n"},
		{"slack without secrets", "clawctl: {}\nusers:\n  - name: alice\n    channels:\n      slack:\n        enabled: true\n"},
		{"bad source type", "clawctl:\n  shared_collections:\n    source_type: ftp\n"},
		{"s3 without bucket", "clawctl:\n  shared_collections:\n    source_type: s3\n"},
		{"traversal collection", "clawctl:\n  shared_collections:\n    source_type: local\n    local_source_base: /src\n    collections: ['../escape']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, clawerr.ErrConfig), "expected ErrConfig, got %v", err)
		})
	}
}

func TestValidUsernames(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("a"))
	assert.NoError(t, ValidateUsername("user-42"))
	assert.Error(t, ValidateUsername("-leading"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("thisusernameiswaytoolongtobeaccepted"))
	assert.Error(t, ValidateUsername("bad_underscore"))
}
