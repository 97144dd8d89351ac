package openclaw

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/clawops/clawctl/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Clawctl: config.Settings{Defaults: config.Defaults{Model: "openrouter/z-ai/glm-4.5-air:free"}},
		Users:   []config.User{{Name: "alice"}},
	}
}

func TestRouteModel(t *testing.T) {
	cases := []struct {
		model, provider, want string
	}{
		{"openrouter/openai/gpt-5-nano", "openrouter", "openrouter/openai/gpt-5-nano"},
		{"openai/gpt-5-nano", "openrouter", "openrouter/openai/gpt-5-nano"},
		{"anthropic/claude-sonnet-4.5", "anthropic", "anthropic/claude-sonnet-4.5"},
		{"anthropic/claude-sonnet-4.5", "", "anthropic/claude-sonnet-4.5"},
		{"local-model", "openrouter", "local-model"},
	}
	for _, c := range cases {
		if got := RouteModel(c.model, c.provider); got != c.want {
			t.Errorf("RouteModel(%q, %q) = %q, want %q", c.model, c.provider, got, c.want)
		}
	}
}

func TestGenerateGatewayToken(t *testing.T) {
	cfg := baseConfig()
	u := cfg.User("alice")

	doc := Generate(cfg, u, "tok-123", "openrouter")
	if doc.Gateway.Mode != "local" || doc.Gateway.Port != GatewayPort || doc.Gateway.Bind != "lan" {
		t.Errorf("unexpected gateway block: %+v", doc.Gateway)
	}
	if doc.Gateway.Auth == nil || doc.Gateway.Auth.Token != "tok-123" || doc.Gateway.Auth.Mode != "token" {
		t.Errorf("expected token auth, got %+v", doc.Gateway.Auth)
	}
	if doc.Gateway.ControlUI == nil || !doc.Gateway.ControlUI.AllowInsecureAuth {
		t.Error("expected controlUi.allowInsecureAuth with a token")
	}
}

func TestGenerateNoToken(t *testing.T) {
	cfg := baseConfig()
	doc := Generate(cfg, cfg.User("alice"), "", "openrouter")
	if doc.Gateway.Auth != nil || doc.Gateway.ControlUI != nil {
		t.Error("auth block must be omitted without a token")
	}
}

func TestGenerateChannels(t *testing.T) {
	cfg := baseConfig()
	u := cfg.User("alice")
	u.Channels.Slack.Enabled = true
	u.Channels.Discord.Enabled = true

	doc := Generate(cfg, u, "", "")
	if doc.Channels.Slack == nil || !doc.Channels.Slack.Enabled || doc.Channels.Slack.Mode != "socket" {
		t.Errorf("unexpected slack stanza: %+v", doc.Channels.Slack)
	}
	if doc.Channels.Discord == nil || !doc.Channels.Discord.Enabled {
		t.Errorf("unexpected discord stanza: %+v", doc.Channels.Discord)
	}
}

func TestGenerateChannelsOmittedWhenDisabled(t *testing.T) {
	cfg := baseConfig()
	doc := Generate(cfg, cfg.User("alice"), "", "")

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	// The channels object is present but empty, and hooks is absent.
	if !bytes.Contains(data, []byte(`"channels":{}`)) {
		t.Errorf("expected empty channels object in %s", data)
	}
	if bytes.Contains(data, []byte(`"hooks"`)) {
		t.Errorf("hooks must be omitted entirely, got %s", data)
	}
}

func TestGenerateGmailHook(t *testing.T) {
	enabled := true
	cfg := baseConfig()
	u := cfg.User("alice")
	u.Skills.Gog = config.SkillSetting{Enabled: &enabled, Email: "alice@example.com"}

	doc := Generate(cfg, u, "", "")
	if doc.Hooks == nil || doc.Hooks.Gmail == nil || doc.Hooks.Gmail.Account != "alice@example.com" {
		t.Errorf("expected gmail hook, got %+v", doc.Hooks)
	}

	// Enabled without an email contributes nothing.
	u.Skills.Gog.Email = ""
	if doc := Generate(cfg, u, "", ""); doc.Hooks != nil {
		t.Errorf("expected no hooks without an email, got %+v", doc.Hooks)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	enabled := true
	cfg := baseConfig()
	u := cfg.User("alice")
	u.Channels.Slack.Enabled = true
	u.Skills.Gog = config.SkillSetting{Enabled: &enabled, Email: "alice@example.com"}

	first, err := json.MarshalIndent(Generate(cfg, u, "tok", "openrouter"), "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.MarshalIndent(Generate(cfg, u, "tok", "openrouter"), "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different documents")
	}
}

func TestWriteOverwrites(t *testing.T) {
	cfg := baseConfig()
	u := cfg.User("alice")
	path := filepath.Join(t.TempDir(), "openclaw", "openclaw.json")

	if err := Write(cfg, u, path, "tok-1", "openrouter"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(cfg, u, path, "tok-2", "openrouter"); err != nil {
		t.Fatalf("Write (second): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if doc.Gateway.Auth == nil || doc.Gateway.Auth.Token != "tok-2" {
		t.Errorf("expected rewrite with the new token, got %+v", doc.Gateway.Auth)
	}
	if data[len(data)-1] != '\n' {
		t.Error("expected trailing newline")
	}
}

func TestWriteWorldReadable(t *testing.T) {
	cfg := baseConfig()
	u := cfg.User("alice")
	path := filepath.Join(t.TempDir(), "openclaw", "openclaw.json")

	if err := Write(cfg, u, path, "tok", "openrouter"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// The container process runs as uid 1000 and reads the config
	// through the bind mount, so the temp file's 0600 must not survive
	// the rename.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("openclaw.json mode = %o, want 644", perm)
	}
}
