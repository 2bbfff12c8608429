package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"byom-relay/internal/domain"
	"byom-relay/internal/integrations/openai"
)

// Hosted dispatches to an OpenAI-compatible hosted API. A fresh client is
// built from the resolved secret on every call.
type Hosted struct {
	baseURL    string
	httpClient *http.Client
}

type HostedOption func(*Hosted)

func WithHostedBaseURL(baseURL string) HostedOption {
	return func(h *Hosted) { h.baseURL = baseURL }
}

func WithHostedHTTPClient(c *http.Client) HostedOption {
	return func(h *Hosted) { h.httpClient = c }
}

func NewHosted(opts ...HostedOption) *Hosted {
	h := &Hosted{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hosted) Invoke(ctx context.Context, cfg domain.ProviderConfig, model string, messages []domain.ChatMessage) (domain.DispatchResult, error) {
	clientOpts := []openai.Option{openai.WithHTTPClient(h.httpClient)}
	if h.baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(h.baseURL))
	}
	client, err := openai.NewClient(cfg.Secret, clientOpts...)
	if err != nil {
		return domain.DispatchResult{}, &AdapterError{Kind: domain.ProviderHosted, Cause: err}
	}

	text, ok, err := client.Chat(ctx, model, messages)
	if err != nil {
		adapterErr := &AdapterError{Kind: domain.ProviderHosted, Cause: err}
		var statusErr *openai.HTTPStatusError
		if errors.As(err, &statusErr) {
			adapterErr.StatusCode = statusErr.StatusCode
			adapterErr.Type = statusErr.ErrorType()
			adapterErr.Body = statusErr.Body
		}
		return domain.DispatchResult{}, adapterErr
	}
	if !ok {
		text = NoContent
	}
	return domain.DispatchResult{Text: text, Meta: domain.DispatchMeta{ModelID: model}}, nil
}
