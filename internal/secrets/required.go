package secrets

import (
	"strings"

	"github.com/clawops/clawctl/internal/config"
)

// Required is one secret a user's configuration calls for, with a human
// description used by CLI prompts.
type Required struct {
	Name        string
	Description string
}

// skillSecrets maps each skill to the secret files it needs at provision
// time. Skills that authenticate interactively inside the container
// (gemini OAuth login, gh auth login) contribute nothing here.
var skillSecrets = map[string][]string{
	"gog":          {"gog_client_id", "gog_client_secret", "gog_keyring_password"},
	"gemini":       {},
	"coding_agent": {},
	"github":       {},
}

// secretDescriptions gives well-known secrets a friendlier prompt than
// the generated title-case fallback.
var secretDescriptions = map[string]string{
	"gog_client_id":        "Google OAuth Client ID",
	"gog_client_secret":    "Google OAuth Client Secret",
	"gog_keyring_password": "Gog keyring encryption password",
}

// RequiredSecrets computes the secrets a user's configuration needs:
// the union of the explicit [users.secrets] declarations, the secrets
// implied by each enabled skill (user setting overriding the default),
// and the secrets implied by each enabled channel. The result is
// deduplicated by secret name in first-seen order.
func RequiredSecrets(cfg *config.Config, user *config.User) []Required {
	var required []Required
	seen := make(map[string]bool)

	add := func(name, description string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		required = append(required, Required{Name: name, Description: description})
	}

	for _, pair := range user.Secrets.Pairs() {
		add(pair.Filename, describe(pair.Filename, titleCase(pair.LogicalName)))
	}

	for _, skill := range config.SkillNames {
		if !cfg.SkillEnabled(user, skill) {
			continue
		}
		for _, name := range skillSecrets[skill] {
			add(name, describe(name, titleCase(skill)+" API key"))
		}
	}

	if user.Channels.Slack.Enabled {
		add(user.Channels.Slack.BotTokenSecret, "Slack bot token")
		add(user.Channels.Slack.AppTokenSecret, "Slack app token")
	}
	if user.Channels.Discord.Enabled {
		add(user.Channels.Discord.TokenSecret, "Discord bot token")
	}

	return required
}

func describe(name, fallback string) string {
	if d, ok := secretDescriptions[name]; ok {
		return d
	}
	return fallback
}

// titleCase turns "openrouter_api_key" into "Openrouter Api Key".
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
