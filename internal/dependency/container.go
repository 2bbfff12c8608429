// Package dependency wires the relay's services using go.uber.org/dig.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/dig"

	"byom-relay/handler"
	"byom-relay/internal/auth"
	"byom-relay/internal/config"
	"byom-relay/internal/credentials"
	"byom-relay/internal/integrations/paramstore"
	"byom-relay/internal/providers"
	"byom-relay/internal/repository"
	"byom-relay/internal/usecase"
)

const (
	jwtSecretParam    = "auth/jwt_secret"
	defaultModelParam = "config/default_model"
	paramFetchTimeout = 10 * time.Second
)

var _ usecase.ProviderTable = (*repository.Client)(nil)

// Container holds the resolved service singletons.
type Container struct {
	handler *handler.Handler
	store   *credentials.Store
}

func (c *Container) Handler() *handler.Handler { return c.handler }

// Close stops background work owned by the container.
func (c *Container) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// ParamSource reads named parameters relative to the parameter prefix.
type ParamSource interface {
	GetParameter(ctx context.Context, name string) (string, error)
	GetSecret(ctx context.Context, name string) (string, error)
}

// awsClients.cfg is nil when neither a providers table nor a parameter prefix is
// configured, so local runs never touch AWS.
type awsClients struct {
	cfg *aws.Config
}

// New builds and wires all services from cfg.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	d := dig.New()

	provide := []any{
		func() *config.Config { return cfg },
		func() context.Context { return ctx },
		newAWSClients,
		newProviderTable,
		newParamSource,
		newCredentialStore,
		newAdapters,
		newProviderService,
		newResolver,
		newChatService,
		newAuthenticator,
		newHandler,
	}
	for _, fn := range provide {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(h *handler.Handler, store *credentials.Store) {
		result = &Container{handler: h, store: store}
	})
	if err != nil {
		return nil, fmt.Errorf("dependency: %w", dig.RootCause(err))
	}
	return result, nil
}

func newAWSClients(ctx context.Context, cfg *config.Config) (awsClients, error) {
	if cfg.ProvidersTable == "" && cfg.ParamPrefix == "" {
		return awsClients{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return awsClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsClients{cfg: &awsCfg}, nil
}

// newProviderTable returns a nil table when persistence is not configured.
func newProviderTable(cfg *config.Config, clients awsClients) (usecase.ProviderTable, error) {
	if cfg.ProvidersTable == "" || clients.cfg == nil {
		return nil, nil
	}
	table, err := repository.New(awsdynamodb.NewFromConfig(*clients.cfg), cfg.ProvidersTable)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func newParamSource(cfg *config.Config, clients awsClients) (ParamSource, error) {
	if cfg.ParamPrefix == "" || clients.cfg == nil {
		return nil, nil
	}
	client, err := paramstore.New(awsssm.NewFromConfig(*clients.cfg), cfg.ParamPrefix)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newCredentialStore(cfg *config.Config) (*credentials.Store, error) {
	return credentials.New(
		credentials.WithTTL(cfg.CredentialTTL),
		credentials.WithSweepInterval(cfg.SweepInterval),
	)
}

func newAdapters(cfg *config.Config) providers.Adapters {
	client := &http.Client{Timeout: cfg.ProviderTimeout}
	return providers.Adapters{
		Hosted: providers.NewHosted(
			providers.WithHostedBaseURL(cfg.HostedBaseURL),
			providers.WithHostedHTTPClient(client),
		),
		GenericHTTP: providers.NewGenericHTTP(client),
	}
}

func newProviderService(store *credentials.Store, table usecase.ProviderTable) (*usecase.ProviderService, error) {
	return usecase.NewProviderService(store, table)
}

func newResolver(svc *usecase.ProviderService) (*usecase.Resolver, error) {
	return usecase.NewResolver(svc)
}

func newChatService(ctx context.Context, cfg *config.Config, params ParamSource, resolver *usecase.Resolver, adapters providers.Adapters) (*usecase.ChatService, error) {
	model, err := defaultModel(ctx, cfg, params)
	if err != nil {
		return nil, err
	}
	return usecase.NewChatService(resolver, adapters, usecase.ChatConfig{
		DefaultModel: model,
		Timeout:      cfg.ProviderTimeout,
		MaxMessages:  cfg.MaxMessages,
		MaxChars:     cfg.MaxChars,
	})
}

// defaultModel prefers a model pinned by the config file or FINE_TUNED_MODEL,
// then the parameter store, then the built-in default. A missing parameter is
// not an error.
func defaultModel(ctx context.Context, cfg *config.Config, params ParamSource) (string, error) {
	if cfg.DefaultModelPinned || params == nil {
		return cfg.DefaultModel, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, paramFetchTimeout)
	defer cancel()
	model, err := params.GetParameter(fetchCtx, defaultModelParam)
	if errors.Is(err, paramstore.ErrNotFound) {
		return cfg.DefaultModel, nil
	}
	if err != nil {
		return "", fmt.Errorf("load default model: %w", err)
	}
	if model = strings.TrimSpace(model); model == "" {
		return cfg.DefaultModel, nil
	}
	return model, nil
}

// newAuthenticator returns nil when auth is off. The signing secret comes
// from config, falling back to the parameter store.
func newAuthenticator(ctx context.Context, cfg *config.Config, secrets ParamSource) (handler.Authenticator, error) {
	if !cfg.Auth.Required {
		return nil, nil
	}
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secrets == nil {
			return nil, errors.New("auth required but no JWT secret source configured")
		}
		fetchCtx, cancel := context.WithTimeout(ctx, paramFetchTimeout)
		defer cancel()
		s, err := secrets.GetSecret(fetchCtx, jwtSecretParam)
		if err != nil {
			return nil, fmt.Errorf("load jwt secret: %w", err)
		}
		secret = s
	}
	verifier, err := auth.NewJWTVerifier(secret, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}
	return verifier, nil
}

func newHandler(chat *usecase.ChatService, svc *usecase.ProviderService, authn handler.Authenticator) (*handler.Handler, error) {
	return handler.NewHandler(chat, svc, authn)
}
