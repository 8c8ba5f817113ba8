package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantag/assistant-gateway/internal/quota"
)

func TestBuildSystemPrompt_Locale(t *testing.T) {
	tr := BuildSystemPrompt(quota.TierFree, LocaleTR)
	assert.Contains(t, tr, "Türkçe")
	assert.Contains(t, tr, "Vantag")

	en := BuildSystemPrompt(quota.TierFree, LocaleEN)
	assert.Contains(t, en, "Always reply in English")
	assert.NotContains(t, en, "Türkçe")

	// An unmapped locale falls back to Turkish rather than an empty prompt.
	assert.Equal(t, tr, BuildSystemPrompt(quota.TierFree, Locale("de")))
}

func TestBuildSystemPrompt_TierGuidance(t *testing.T) {
	free := BuildSystemPrompt(quota.TierFree, LocaleEN)
	assert.Contains(t, free, "2-3 sentences")
	assert.NotContains(t, free, "premium member")

	for _, tier := range []quota.Tier{quota.TierPro, quota.TierLifetime} {
		paid := BuildSystemPrompt(tier, LocaleEN)
		assert.Contains(t, paid, "premium member", "tier %s", tier)
		assert.NotContains(t, paid, "2-3 sentences", "tier %s", tier)
	}
}

func TestBuildSystemPrompt_Structure(t *testing.T) {
	prompt := BuildSystemPrompt(quota.TierPro, LocaleEN)
	parts := strings.Split(prompt, "\n\n")
	require.Len(t, parts, 4)
	// The tool directive closes the prompt for every tier and locale.
	assert.Contains(t, parts[3], "tool")
}
