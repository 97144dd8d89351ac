// Package config handles clawctl.yaml parsing and validation.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/paths"
)

// DefaultModel is used when neither the user nor the defaults block
// names an agent model.
const DefaultModel = "openrouter/z-ai/glm-4.5-air:free"

// Config is the root of a validated clawctl.yaml.
type Config struct {
	Clawctl Settings `yaml:"clawctl"`
	Web     Web      `yaml:"web"`
	Users   []User   `yaml:"users"`
}

// Settings is the [clawctl] block.
type Settings struct {
	DataRoot        string             `yaml:"data_root"`
	BuildRoot       string             `yaml:"build_root"`
	OpenclawVersion string             `yaml:"openclaw_version"`
	ImageName       string             `yaml:"image_name"`
	LogLevel        string             `yaml:"log_level"`
	KnowledgeDir    string             `yaml:"knowledge_dir"`
	Backup          Backup             `yaml:"backup"`
	Defaults        Defaults           `yaml:"defaults"`
	Collections     *SharedCollections `yaml:"shared_collections"`
}

// Backup configures the periodic backup daemon.
type Backup struct {
	Enabled         *bool    `yaml:"enabled"`
	IntervalMinutes int      `yaml:"interval_minutes"`
	IncludePatterns []string `yaml:"include_patterns"`
}

// IsEnabled reports whether backups are on (default true).
func (b Backup) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// Defaults holds global fallbacks applied per user.
type Defaults struct {
	Model             string `yaml:"model"`
	Skills            Skills `yaml:"skills"`
	WorkspaceTemplate string `yaml:"workspace_template"`
}

// SharedCollections configures the shared-collection sync daemon.
type SharedCollections struct {
	SourceType      string   `yaml:"source_type"` // "s3" or "local"
	S3Bucket        string   `yaml:"s3_bucket"`
	S3Prefix        string   `yaml:"s3_prefix"`
	LocalSourceBase string   `yaml:"local_source_base"`
	Collections     []string `yaml:"collections"`
	SyncSchedule    string   `yaml:"sync_schedule"`
}

// Web holds settings consumed by the dashboard process.
type Web struct {
	ModelPriceLimits PriceLimits `yaml:"model_price_limits"`
}

// PriceLimits caps which models the dashboard offers. Zero means no cap.
type PriceLimits struct {
	MaxPromptPricePerMillion     float64 `yaml:"max_prompt_price_per_million"`
	MaxCompletionPricePerMillion float64 `yaml:"max_completion_price_per_million"`
	MaxRequestPrice              float64 `yaml:"max_request_price"`
}

// User is one declared user instance.
type User struct {
	Name              string         `yaml:"name"`
	Channels          Channels       `yaml:"channels"`
	Agent             Agent          `yaml:"agent"`
	Skills            Skills         `yaml:"skills"`
	Secrets           OrderedSecrets `yaml:"secrets"`
	WorkspaceTemplate string         `yaml:"workspace_template"`
}

// Agent selects the model the user's instance runs.
type Agent struct {
	Model string `yaml:"model"`
}

// Channels enables chat-relay integrations.
type Channels struct {
	Slack   SlackChannel   `yaml:"slack"`
	Discord DiscordChannel `yaml:"discord"`
}

// SlackChannel configures the Slack channel. Token values live in the
// secret store under the named secrets, never in this file.
type SlackChannel struct {
	Enabled        bool   `yaml:"enabled"`
	BotTokenSecret string `yaml:"bot_token_secret"`
	AppTokenSecret string `yaml:"app_token_secret"`
}

// DiscordChannel configures the Discord channel.
type DiscordChannel struct {
	Enabled     bool   `yaml:"enabled"`
	TokenSecret string `yaml:"token_secret"`
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,31}$`)

// ValidateUsername checks the username shape: 1-32 lowercase alphanumeric
// characters or hyphens, not starting with a hyphen.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return clawerr.Config("invalid username %q: must be 1-32 lowercase alphanumeric characters or hyphens, starting with an alphanumeric", name)
	}
	return nil
}

// EffectiveModel returns the user's model, falling back to the defaults
// block and finally to DefaultModel.
func (c *Config) EffectiveModel(u *User) string {
	if u.Agent.Model != "" {
		return u.Agent.Model
	}
	if c.Clawctl.Defaults.Model != "" {
		return c.Clawctl.Defaults.Model
	}
	return DefaultModel
}

// EffectiveTemplate returns the workspace template for a user: the
// per-user path when set, else the global default, else "".
func (c *Config) EffectiveTemplate(u *User) string {
	if u.WorkspaceTemplate != "" {
		return u.WorkspaceTemplate
	}
	return c.Clawctl.Defaults.WorkspaceTemplate
}

// ImageTag returns the full image reference to run user containers from.
func (s Settings) ImageTag() string {
	return s.ImageName + ":" + s.OpenclawVersion
}

// User returns the configured user with the given name, or nil.
func (c *Config) User(name string) *User {
	for i := range c.Users {
		if c.Users[i].Name == name {
			return &c.Users[i]
		}
	}
	return nil
}

// Usernames returns all configured usernames in declaration order.
func (c *Config) Usernames() []string {
	names := make([]string, len(c.Users))
	for i, u := range c.Users {
		names[i] = u.Name
	}
	return names
}

// Paths constructs the path resolver for this configuration.
func (c *Config) Paths() *paths.Resolver {
	return paths.New(c.Clawctl.DataRoot, c.Clawctl.BuildRoot)
}

// Load reads and validates a clawctl.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clawerr.Config("config file not found: %s (run 'clawctl init' to create one)", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, clawerr.Config("parsing %s: %v", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	s := &cfg.Clawctl
	if s.DataRoot == "" {
		s.DataRoot = "data"
	}
	if s.OpenclawVersion == "" {
		s.OpenclawVersion = "latest"
	}
	if s.ImageName == "" {
		s.ImageName = "openclaw-instance"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Backup.IntervalMinutes == 0 {
		s.Backup.IntervalMinutes = 15
	}
	if len(s.Backup.IncludePatterns) == 0 {
		s.Backup.IncludePatterns = []string{
			"workspace/**/*.md",
			"workspace/**/*.json",
			"openclaw.json",
		}
	}
	if s.Collections != nil && s.Collections.SyncSchedule == "" {
		s.Collections.SyncSchedule = "daily"
	}
}

func validate(cfg *Config) error {
	s := &cfg.Clawctl
	switch s.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return clawerr.Config("invalid log_level %q: must be debug, info, warning, or error", s.LogLevel)
	}

	if s.Backup.IntervalMinutes < 5 || s.Backup.IntervalMinutes > 60 {
		return clawerr.Config("backup.interval_minutes %d out of range: must be between 5 and 60", s.Backup.IntervalMinutes)
	}

	if c := s.Collections; c != nil {
		switch c.SourceType {
		case "s3":
			if c.S3Bucket == "" {
				return clawerr.Config("shared_collections.s3_bucket is required when source_type is s3")
			}
		case "local":
			if c.LocalSourceBase == "" {
				return clawerr.Config("shared_collections.local_source_base is required when source_type is local")
			}
		default:
			return clawerr.Config("invalid shared_collections.source_type %q: must be s3 or local", c.SourceType)
		}
		for _, name := range c.Collections {
			if err := paths.ValidateCollectionName(name); err != nil {
				return clawerr.Config("shared_collections: %v", err)
			}
		}
	}

	seen := make(map[string]bool, len(cfg.Users))
	for i := range cfg.Users {
		u := &cfg.Users[i]
		if err := ValidateUsername(u.Name); err != nil {
			return err
		}
		if seen[u.Name] {
			return clawerr.Config("duplicate user %q", u.Name)
		}
		seen[u.Name] = true

		if u.Channels.Slack.Enabled {
			if u.Channels.Slack.BotTokenSecret == "" || u.Channels.Slack.AppTokenSecret == "" {
				return clawerr.Config("user %q: slack channel requires bot_token_secret and app_token_secret", u.Name)
			}
		}
		if u.Channels.Discord.Enabled && u.Channels.Discord.TokenSecret == "" {
			return clawerr.Config("user %q: discord channel requires token_secret", u.Name)
		}
	}
	return nil
}

// FindPath resolves the config file path: the explicit flag value when
// set, then $CLAWCTL_CONFIG, then ./clawctl.yaml.
func FindPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CLAWCTL_CONFIG"); env != "" {
		return env
	}
	return "clawctl.yaml"
}
