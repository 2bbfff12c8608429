package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProviderKind(t *testing.T) {
	cases := []struct {
		in   string
		want ProviderKind
		ok   bool
	}{
		{"openai", ProviderHosted, true},
		{" OpenAI ", ProviderHosted, true},
		{"http", ProviderGenericHTTP, true},
		{"HTTP", ProviderGenericHTTP, true},
		{"", "", false},
		{"anthropic", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseProviderKind(tc.in)
		require.Equal(t, tc.ok, ok, "in=%q", tc.in)
		require.Equal(t, tc.want, got, "in=%q", tc.in)
	}
}

func TestProviderConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		cfg    ProviderConfig
		reason string
	}{
		{name: "hosted ok", cfg: ProviderConfig{Kind: ProviderHosted, Secret: "sk-abc"}},
		{name: "hosted missing secret", cfg: ProviderConfig{Kind: ProviderHosted, Secret: "  "}, reason: "requires apiKey"},
		{name: "http ok", cfg: ProviderConfig{Kind: ProviderGenericHTTP, Endpoint: "https://ok"}},
		{name: "http missing endpoint", cfg: ProviderConfig{Kind: ProviderGenericHTTP, Secret: "sk-abc"}, reason: "requires endpoint"},
		{name: "unknown kind", cfg: ProviderConfig{Kind: "grpc", Endpoint: "x"}, reason: "must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig))
			require.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestProviderConfig_Normalized(t *testing.T) {
	cfg := ProviderConfig{
		Kind:         " HTTP ",
		Secret:       " sk-1 ",
		Model:        " m ",
		Endpoint:     " https://e ",
		SystemPrompt: "  keep  ",
	}.Normalized()
	require.Equal(t, ProviderConfig{
		Kind:         ProviderGenericHTTP,
		Secret:       "sk-1",
		Model:        "m",
		Endpoint:     "https://e",
		SystemPrompt: "  keep  ",
	}, cfg)
}
