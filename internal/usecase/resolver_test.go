package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"byom-relay/internal/domain"
)

type fakeLookup struct {
	configs map[string]domain.ProviderConfig
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(_ context.Context, userID string) (domain.ProviderConfig, bool, error) {
	f.calls++
	if f.err != nil {
		return domain.ProviderConfig{}, false, f.err
	}
	cfg, ok := f.configs[userID]
	return cfg, ok, nil
}

func newTestResolver(t *testing.T, lookup *fakeLookup) *Resolver {
	t.Helper()
	r, err := NewResolver(lookup)
	require.NoError(t, err)
	return r
}

var storedHTTP = map[string]domain.ProviderConfig{
	"u1": {Kind: domain.ProviderGenericHTTP, Endpoint: "https://example.test/a"},
}

func TestNewResolver_Validation(t *testing.T) {
	_, err := NewResolver(nil)
	require.Error(t, err)
}

func TestResolve_OverrideWins(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{configs: storedHTTP})
	res, err := r.Resolve(context.Background(), ChatInput{
		UserID:   "u1",
		Headers:  HeaderCredentials{Provider: "http", Endpoint: "https://example.test/b"},
		Override: &domain.ProviderConfig{Kind: domain.ProviderHosted, Secret: " sk-override "},
	})
	require.NoError(t, err)
	require.Equal(t, SourceOverride, res.Source)
	require.Equal(t, "sk-override", res.Config.Secret)
}

func TestResolve_InvalidOverrideFailsFast(t *testing.T) {
	lookup := &fakeLookup{configs: storedHTTP}
	r := newTestResolver(t, lookup)
	_, err := r.Resolve(context.Background(), ChatInput{
		UserID:   "u1",
		Headers:  HeaderCredentials{Secret: "sk-header"},
		Override: &domain.ProviderConfig{Kind: domain.ProviderHosted},
	})
	require.Equal(t, ErrorInvalidConfig, CodeOf(err))
	require.True(t, errors.Is(err, domain.ErrInvalidConfig))
	require.Zero(t, lookup.calls)
}

func TestResolve_HeaderBeatsStored(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{configs: storedHTTP})
	res, err := r.Resolve(context.Background(), ChatInput{
		UserID:  "u1",
		Headers: HeaderCredentials{Provider: "HTTP", Endpoint: "https://example.test/b", Model: "dummy"},
	})
	require.NoError(t, err)
	require.Equal(t, SourceHeader, res.Source)
	require.Equal(t, domain.ProviderConfig{Kind: domain.ProviderGenericHTTP, Endpoint: "https://example.test/b", Model: "dummy"}, res.Config)
}

func TestResolve_HeaderSecretDefaultsToHosted(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{})
	res, err := r.Resolve(context.Background(), ChatInput{Headers: HeaderCredentials{Secret: "sk-xyz9876", Model: "m"}})
	require.NoError(t, err)
	require.Equal(t, domain.ProviderHosted, res.Config.Kind)
	require.Equal(t, "m", res.Config.Model)
}

func TestResolve_HeaderEndpointDefaultsToHTTP(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{configs: storedHTTP})
	res, err := r.Resolve(context.Background(), ChatInput{
		UserID:  "u1",
		Headers: HeaderCredentials{Endpoint: "https://example.test/b"},
	})
	require.NoError(t, err)
	require.Equal(t, SourceHeader, res.Source)
	require.Equal(t, domain.ProviderConfig{Kind: domain.ProviderGenericHTTP, Endpoint: "https://example.test/b"}, res.Config)
}

func TestResolve_HeaderSecretAndEndpointPreferHosted(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{})
	res, err := r.Resolve(context.Background(), ChatInput{
		Headers: HeaderCredentials{Secret: "sk-1", Endpoint: "https://example.test/b"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProviderHosted, res.Config.Kind)
}

func TestResolve_IncompleteHeadersFallThrough(t *testing.T) {
	cases := map[string]HeaderCredentials{
		"http without endpoint": {Provider: "http", Secret: "sk-1"},
		"openai without secret": {Provider: "openai", Endpoint: "https://x"},
		"unknown provider":      {Provider: "grpc", Secret: "sk-1"},
		"model only":            {Model: "m"},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			r := newTestResolver(t, &fakeLookup{configs: storedHTTP})
			res, err := r.Resolve(context.Background(), ChatInput{UserID: "u1", Headers: h})
			require.NoError(t, err)
			require.Equal(t, SourceStored, res.Source)
			require.Equal(t, "https://example.test/a", res.Config.Endpoint)
		})
	}
}

func TestResolve_NoProviderConfigured(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{})
	for name, in := range map[string]ChatInput{
		"no user":      {},
		"unknown user": {UserID: "nobody"},
		"bad headers":  {UserID: "nobody", Headers: HeaderCredentials{Provider: "http"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), in)
			require.Equal(t, ErrorNoProviderConfigured, CodeOf(err))
		})
	}
}

func TestResolve_StoredLookupError(t *testing.T) {
	r := newTestResolver(t, &fakeLookup{err: errors.New("boom")})
	_, err := r.Resolve(context.Background(), ChatInput{UserID: "u1"})
	require.Equal(t, ErrorInternal, CodeOf(err))
}
