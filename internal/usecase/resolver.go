package usecase

import (
	"context"
	"errors"
	"strings"

	"byom-relay/internal/domain"
)

// Source names the tier a resolved config came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceHeader   Source = "header"
	SourceStored   Source = "stored"
)

type Resolution struct {
	Config domain.ProviderConfig
	Source Source
}

// ConfigLookup finds the stored provider config for a user.
type ConfigLookup interface {
	Lookup(ctx context.Context, userID string) (domain.ProviderConfig, bool, error)
}

// strategy returns ok=false when its tier does not apply to the request.
// A non-nil error stops resolution.
type strategy struct {
	source  Source
	resolve func(ctx context.Context, in ChatInput) (domain.ProviderConfig, bool, error)
}

// Resolver walks its strategies in precedence order and returns the first
// config that applies.
type Resolver struct {
	strategies []strategy
}

func NewResolver(stored ConfigLookup) (*Resolver, error) {
	if stored == nil {
		return nil, errors.New("usecase: config lookup must not be nil")
	}
	return &Resolver{strategies: []strategy{
		{source: SourceOverride, resolve: overrideStrategy},
		{source: SourceHeader, resolve: headerStrategy},
		{source: SourceStored, resolve: storedStrategy(stored)},
	}}, nil
}

func (r *Resolver) Resolve(ctx context.Context, in ChatInput) (Resolution, error) {
	for _, s := range r.strategies {
		cfg, ok, err := s.resolve(ctx, in)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			return Resolution{Config: cfg, Source: s.source}, nil
		}
	}
	return Resolution{}, newError(ErrorNoProviderConfigured, "no_provider_configured", nil)
}

// overrideStrategy fails fast: an override that is present must be valid.
func overrideStrategy(_ context.Context, in ChatInput) (domain.ProviderConfig, bool, error) {
	if in.Override == nil {
		return domain.ProviderConfig{}, false, nil
	}
	cfg := in.Override.Normalized()
	if err := cfg.Validate(); err != nil {
		return domain.ProviderConfig{}, false, newError(ErrorInvalidConfig, "invalid_override", err)
	}
	return cfg, true, nil
}

// headerStrategy tolerates incomplete or unknown header sets by reporting
// not-applicable so the stored tier gets a chance.
func headerStrategy(_ context.Context, in ChatInput) (domain.ProviderConfig, bool, error) {
	h := in.Headers
	if h.empty() {
		return domain.ProviderConfig{}, false, nil
	}
	cfg := domain.ProviderConfig{
		Secret:   strings.TrimSpace(h.Secret),
		Model:    strings.TrimSpace(h.Model),
		Endpoint: strings.TrimSpace(h.Endpoint),
	}
	if strings.TrimSpace(h.Provider) == "" {
		switch {
		case cfg.Secret != "":
			cfg.Kind = domain.ProviderHosted
		case cfg.Endpoint != "":
			cfg.Kind = domain.ProviderGenericHTTP
		default:
			return domain.ProviderConfig{}, false, nil
		}
	} else {
		kind, ok := domain.ParseProviderKind(h.Provider)
		if !ok {
			return domain.ProviderConfig{}, false, nil
		}
		cfg.Kind = kind
	}
	if cfg.Validate() != nil {
		return domain.ProviderConfig{}, false, nil
	}
	return cfg, true, nil
}

func storedStrategy(stored ConfigLookup) func(context.Context, ChatInput) (domain.ProviderConfig, bool, error) {
	return func(ctx context.Context, in ChatInput) (domain.ProviderConfig, bool, error) {
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			return domain.ProviderConfig{}, false, nil
		}
		cfg, ok, err := stored.Lookup(ctx, userID)
		if err != nil {
			return domain.ProviderConfig{}, false, newError(ErrorInternal, "stored_lookup_error", err)
		}
		if !ok || cfg.Validate() != nil {
			return domain.ProviderConfig{}, false, nil
		}
		return cfg, true, nil
	}
}
