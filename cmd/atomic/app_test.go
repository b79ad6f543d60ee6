package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
)

func TestAISettings(t *testing.T) {
	s, err := aiSettings(config.AIConfig{
		DefaultProvider: "Anthropic",
		Mode:            "json",
		TimeoutSec:      5,
		RateLimit:       2,
		RateBurst:       3,
		Providers: map[string]config.ProviderConfig{
			"OpenAI": {APIKey: "k", BaseURL: "http://local"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "anthropic", s.DefaultProvider)
	require.Equal(t, ai.ModeJSON, s.Mode)
	require.Equal(t, 5*time.Second, s.Timeout)
	require.Equal(t, "k", s.Providers["openai"].APIKey)

	_, err = aiSettings(config.AIConfig{Mode: "xml"})
	require.Error(t, err)
}

func TestNeedsDatabase(t *testing.T) {
	cases := []struct {
		memory  string
		persist bool
		want    bool
	}{
		{"naive", true, false},
		{"semantic", false, false},
		{"semantic", true, true},
		{"pg", false, true},
	}
	for _, tc := range cases {
		cfg := &config.Config{Memory: config.MemoryConfig{Type: tc.memory, PersistCache: tc.persist}}
		require.Equal(t, tc.want, needsDatabase(cfg), tc.memory)
	}
}
