package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawops/clawctl/internal/clawerr"
)

func TestSetUserModel(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	require.NoError(t, SetUserModel(path, "alice", "openrouter/openai/gpt-5-nano"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openrouter/openai/gpt-5-nano", cfg.User("alice").Agent.Model)

	// The rest of the document survives the rewrite.
	assert.Equal(t, "anthropic/claude-sonnet-4.5", cfg.User("bob").Agent.Model)
	assert.Equal(t, "/srv/claw/data", cfg.Clawctl.DataRoot)
	pairs := cfg.User("alice").Secrets.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "openrouter_api_key", pairs[0].Filename)
}

func TestSetUserModelUnknownUser(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	err := SetUserModel(path, "carol", "some/model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, clawerr.ErrNotFound))

	// File untouched on failure.
	cfg, loadErr := Load(path)
	require.NoError(t, loadErr)
	assert.Equal(t, "", cfg.User("alice").Agent.Model)
}

func TestSetWebPriceLimits(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	require.NoError(t, SetWebPriceLimits(path, PriceLimits{
		MaxPromptPricePerMillion: 1.5,
		MaxRequestPrice:          0.25,
	}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Web.ModelPriceLimits.MaxPromptPricePerMillion)
	assert.Equal(t, 0.25, cfg.Web.ModelPriceLimits.MaxRequestPrice)
	assert.Equal(t, 0.0, cfg.Web.ModelPriceLimits.MaxCompletionPricePerMillion)

	// Clearing all caps removes the block entirely.
	require.NoError(t, SetWebPriceLimits(path, PriceLimits{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "model_price_limits")
}
