package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"byom-relay/internal/domain"
	"byom-relay/internal/providers"
)

const (
	DefaultModel           = "gpt-4o-mini"
	defaultProviderTimeout = 30 * time.Second
)

// AdapterSet selects the adapter serving a provider kind.
type AdapterSet interface {
	For(kind domain.ProviderKind) (providers.Adapter, error)
}

type ChatConfig struct {
	DefaultModel string
	Timeout      time.Duration
	MaxMessages  int
	MaxChars     int
}

type ChatService struct {
	resolver *Resolver
	adapters AdapterSet
	cfg      ChatConfig
}

type ChatOutput struct {
	Reply string
	Meta  domain.DispatchMeta
	// Degraded is set when Reply is the quota explanation rather than model output.
	Degraded bool
	Source   Source
}

func NewChatService(resolver *Resolver, adapters AdapterSet, cfg ChatConfig) (*ChatService, error) {
	if resolver == nil {
		return nil, errors.New("usecase: resolver must not be nil")
	}
	if adapters == nil {
		return nil, errors.New("usecase: adapter set must not be nil")
	}
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProviderTimeout
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &ChatService{resolver: resolver, adapters: adapters, cfg: cfg}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	messages, err := NormalizeInput(in)
	if err != nil {
		return ChatOutput{}, err
	}
	messages = ApplySafetyCaps(messages, s.cfg.MaxMessages, s.cfg.MaxChars)

	res, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return ChatOutput{}, err
	}
	cfg := res.Config

	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		messages = append([]domain.ChatMessage{{Role: domain.RoleSystem, Content: cfg.SystemPrompt}}, messages...)
	}

	adapter, err := s.adapters.For(cfg.Kind)
	if err != nil {
		return ChatOutput{}, newError(ErrorInvalidConfig, "no_adapter_for_provider", err)
	}

	model := s.modelFor(cfg)
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := adapter.Invoke(callCtx, cfg, model, messages)
	if err != nil {
		if IsQuotaOrRateLimit(err) {
			slog.Warn("usecase: provider quota or rate limit hit", "provider", cfg.Kind, "source", res.Source, "model", model)
			return ChatOutput{
				Reply:    QuotaReply,
				Meta:     domain.DispatchMeta{ModelID: model},
				Degraded: true,
				Source:   res.Source,
			}, nil
		}
		attrs := []any{"provider", cfg.Kind, "source", res.Source, "model", model, "err", err}
		var adapterErr *providers.AdapterError
		if errors.As(err, &adapterErr) {
			attrs = append(attrs, "status", adapterErr.StatusCode, "body", adapterErr.Body)
		}
		slog.Error("usecase: provider call failed", attrs...)
		return ChatOutput{}, newError(ErrorUpstream, "provider_error", err)
	}

	slog.Info("usecase: chat dispatched", "provider", cfg.Kind, "source", res.Source, "model", out.Meta.ModelID, "messages", len(messages))
	return ChatOutput{Reply: out.Text, Meta: out.Meta, Source: res.Source}, nil
}

// modelFor picks the model sent upstream. Hosted calls fall back to the
// server default; generic endpoints get the configured model as given.
func (s *ChatService) modelFor(cfg domain.ProviderConfig) string {
	if cfg.Kind == domain.ProviderHosted && cfg.Model == "" {
		return s.cfg.DefaultModel
	}
	return cfg.Model
}
