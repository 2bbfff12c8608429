// Package providers implements the backends a resolved chat is dispatched to.
// Every adapter takes normalized messages plus a resolved config and returns
// the same DispatchResult shape.
package providers

import (
	"context"
	"errors"
	"fmt"

	"byom-relay/internal/domain"
)

// NoContent is the reply text used when a backend answers without content.
const NoContent = "(no content)"

// Adapter is the capability shared by every backend.
type Adapter interface {
	Invoke(ctx context.Context, cfg domain.ProviderConfig, model string, messages []domain.ChatMessage) (domain.DispatchResult, error)
}

// AdapterError wraps any transport or protocol failure raised by an adapter.
// Its message never includes the credential used for the call.
type AdapterError struct {
	Kind       domain.ProviderKind
	StatusCode int
	Type       string
	Body       string
	Cause      error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return fmt.Sprintf("providers: %s adapter failed with status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("providers: %s adapter failed: %v", e.Kind, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// HTTPStatusCode returns the upstream status, or 0 when no response arrived.
func (e *AdapterError) HTTPStatusCode() int { return e.StatusCode }

func (e *AdapterError) ErrorType() string { return e.Type }

// Adapters holds one adapter per provider kind.
type Adapters struct {
	Hosted      Adapter
	GenericHTTP Adapter
}

// For selects the adapter serving kind.
func (a Adapters) For(kind domain.ProviderKind) (Adapter, error) {
	var adapter Adapter
	switch kind {
	case domain.ProviderHosted:
		adapter = a.Hosted
	case domain.ProviderGenericHTTP:
		adapter = a.GenericHTTP
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfig, kind)
	}
	if adapter == nil {
		return nil, errors.New("providers: no adapter registered for " + string(kind))
	}
	return adapter, nil
}
