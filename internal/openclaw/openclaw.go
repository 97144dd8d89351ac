// Package openclaw generates the per-user openclaw.json the managed
// application reads at container startup. Generation is a pure function
// of the user's configuration, so regenerating with the same inputs
// always produces byte-identical output.
package openclaw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clawops/clawctl/internal/config"
)

// GatewayPort is the fixed port the gateway listens on inside the
// container. The host side maps it to an ephemeral port.
const GatewayPort = 18789

// ProviderOpenRouter marks models as routed through OpenRouter. Model
// identifiers then carry the "openrouter/<author>/<slug>" prefix.
const ProviderOpenRouter = "openrouter"

// Document is the openclaw.json schema, with fields in emission order.
type Document struct {
	Agents   Agents   `json:"agents"`
	Gateway  Gateway  `json:"gateway"`
	Channels Channels `json:"channels"`
	Hooks    *Hooks   `json:"hooks,omitempty"`
}

// Agents holds agent-level defaults.
type Agents struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults selects the model agents run by default.
type AgentDefaults struct {
	Model ModelSelection `json:"model"`
}

// ModelSelection names the primary model.
type ModelSelection struct {
	Primary string `json:"primary"`
}

// Gateway configures the in-container gateway listener.
type Gateway struct {
	Mode string `json:"mode"`
	Port int    `json:"port"`
	Bind string `json:"bind"`
	// Auth and ControlUI appear only when a gateway token exists:
	// token auth plus allowInsecureAuth lets the browser dashboard
	// work through Docker NAT without device pairing.
	Auth      *GatewayAuth `json:"auth,omitempty"`
	ControlUI *ControlUI   `json:"controlUi,omitempty"`
}

// GatewayAuth enables token-based gateway authentication.
type GatewayAuth struct {
	Mode  string `json:"mode"`
	Token string `json:"token"`
}

// ControlUI relaxes browser pairing for NAT'd containers.
type ControlUI struct {
	AllowInsecureAuth bool `json:"allowInsecureAuth"`
}

// Channels enables chat-relay integrations. Tokens are never embedded
// here; the entrypoint injects them as environment variables from the
// mounted secrets.
type Channels struct {
	Slack   *SlackChannel   `json:"slack,omitempty"`
	Discord *DiscordChannel `json:"discord,omitempty"`
}

// SlackChannel is the slack enablement stanza.
type SlackChannel struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
}

// DiscordChannel is the discord enablement stanza.
type DiscordChannel struct {
	Enabled bool `json:"enabled"`
}

// Hooks holds skill hook stanzas.
type Hooks struct {
	Gmail *GmailHook `json:"gmail,omitempty"`
}

// GmailHook binds the gmail hook to a Google account.
type GmailHook struct {
	Account string `json:"account"`
}

// Generate builds the openclaw.json document for a user. When a gateway
// token is supplied the gateway block enables token auth; when provider
// is ProviderOpenRouter, bare "<author>/<slug>" models get the
// "openrouter/" routing prefix.
func Generate(cfg *config.Config, u *config.User, gatewayToken, provider string) *Document {
	doc := &Document{
		Agents: Agents{Defaults: AgentDefaults{Model: ModelSelection{
			Primary: RouteModel(cfg.EffectiveModel(u), provider),
		}}},
		Gateway: Gateway{
			Mode: "local",
			Port: GatewayPort,
			Bind: "lan", // 0.0.0.0 inside the container
		},
	}

	if gatewayToken != "" {
		doc.Gateway.Auth = &GatewayAuth{Mode: "token", Token: gatewayToken}
		doc.Gateway.ControlUI = &ControlUI{AllowInsecureAuth: true}
	}

	if u.Channels.Slack.Enabled {
		doc.Channels.Slack = &SlackChannel{Enabled: true, Mode: "socket"}
	}
	if u.Channels.Discord.Enabled {
		doc.Channels.Discord = &DiscordChannel{Enabled: true}
	}

	if cfg.SkillEnabled(u, "gog") && u.Skills.Gog.Email != "" {
		doc.Hooks = &Hooks{Gmail: &GmailHook{Account: u.Skills.Gog.Email}}
	}

	return doc
}

// RouteModel applies the OpenRouter routing convention: a model already
// carrying the "openrouter/" prefix is left alone; a bare
// "<author>/<slug>" identifier gets the prefix only when the provider is
// OpenRouter; anything else passes through for direct-provider access.
func RouteModel(model, provider string) string {
	if strings.HasPrefix(model, ProviderOpenRouter+"/") {
		return model
	}
	if provider == ProviderOpenRouter && strings.Contains(model, "/") {
		return ProviderOpenRouter + "/" + model
	}
	return model
}

// Write generates the document and writes it to path as pretty-printed
// JSON, creating parent directories as needed. The file is written to a
// temp file and renamed so a concurrent reader never observes a partial
// document.
func Write(cfg *config.Config, u *config.User, path, gatewayToken, provider string) error {
	doc := Generate(cfg, u, gatewayToken, provider)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding openclaw config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".openclaw-*.json")
	if err != nil {
		return fmt.Errorf("writing openclaw config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing openclaw config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing openclaw config: %w", err)
	}
	// CreateTemp makes the file 0600; the container user reads the
	// config through the bind mount, so it must be world-readable.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing openclaw config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing openclaw config: %w", err)
	}
	return nil
}
