package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every provider configuration validation failure.
var ErrInvalidConfig = errors.New("invalid provider config")

// ProviderKind is the closed set of backends a request can be dispatched to.
type ProviderKind string

const (
	// ProviderHosted is a vendor-hosted model reached with a secret API key.
	ProviderHosted ProviderKind = "openai"
	// ProviderGenericHTTP is any backend that accepts a plain JSON POST.
	ProviderGenericHTTP ProviderKind = "http"
)

// ParseProviderKind maps a wire name onto a ProviderKind. Unknown and blank
// names report false.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch ProviderKind(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderHosted:
		return ProviderHosted, true
	case ProviderGenericHTTP:
		return ProviderGenericHTTP, true
	}
	return "", false
}

func (k ProviderKind) String() string { return string(k) }

// ProviderConfig is everything needed to dispatch a chat to one backend.
type ProviderConfig struct {
	Kind         ProviderKind `json:"provider"`
	Secret       string       `json:"apiKey,omitempty"`
	Model        string       `json:"model,omitempty"`
	Endpoint     string       `json:"endpoint,omitempty"`
	SystemPrompt string       `json:"systemPrompt,omitempty"`
}

// Normalized returns a copy with surrounding whitespace removed from every
// field except the system prompt, which is kept verbatim.
func (c ProviderConfig) Normalized() ProviderConfig {
	kind, ok := ParseProviderKind(string(c.Kind))
	if !ok {
		kind = ProviderKind(strings.TrimSpace(string(c.Kind)))
	}
	return ProviderConfig{
		Kind:         kind,
		Secret:       strings.TrimSpace(c.Secret),
		Model:        strings.TrimSpace(c.Model),
		Endpoint:     strings.TrimSpace(c.Endpoint),
		SystemPrompt: c.SystemPrompt,
	}
}

// Validate enforces the dispatch invariant: hosted configs carry a secret and
// generic HTTP configs carry an endpoint.
func (c ProviderConfig) Validate() error {
	switch c.Kind {
	case ProviderHosted:
		if strings.TrimSpace(c.Secret) == "" {
			return fmt.Errorf("%w: %s requires apiKey", ErrInvalidConfig, ProviderHosted)
		}
	case ProviderGenericHTTP:
		if strings.TrimSpace(c.Endpoint) == "" {
			return fmt.Errorf("%w: %s requires endpoint", ErrInvalidConfig, ProviderGenericHTTP)
		}
	default:
		return fmt.Errorf("%w: provider must be one of: %s, %s", ErrInvalidConfig, ProviderHosted, ProviderGenericHTTP)
	}
	return nil
}
