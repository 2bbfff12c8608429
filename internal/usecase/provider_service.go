package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"byom-relay/internal/credentials"
	"byom-relay/internal/domain"
)

type CredentialStore interface {
	Set(userID string, cfg domain.ProviderConfig, ttl time.Duration) error
	Get(userID string) (domain.ProviderConfig, bool)
	Delete(userID string) bool
}

type ProviderTable interface {
	Upsert(ctx context.Context, userID string, kind domain.ProviderKind, cfg domain.ProviderConfig) error
	FetchOne(ctx context.Context, userID string) (domain.ProviderRecord, bool, error)
	Delete(ctx context.Context, userID string) (bool, error)
}

// ProviderService manages per-user provider configs. The credential store is
// authoritative for dispatch; the table, when configured, keeps configs
// across restarts and is consulted on a memory miss.
type ProviderService struct {
	store CredentialStore
	table ProviderTable
}

type RegisterInput struct {
	UserID   string
	Provider string
	Config   domain.ProviderConfig
}

type RegisterOutput struct {
	Persisted bool
}

type DeleteOutput struct {
	Deleted bool
}

// NewProviderService builds the service. table may be nil, in which case
// configs live only in memory.
func NewProviderService(store CredentialStore, table ProviderTable) (*ProviderService, error) {
	if store == nil {
		return nil, errors.New("usecase: credential store must not be nil")
	}
	return &ProviderService{store: store, table: table}, nil
}

func (s *ProviderService) Register(ctx context.Context, in RegisterInput) (RegisterOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return RegisterOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	kind, ok := domain.ParseProviderKind(in.Provider)
	if !ok {
		return RegisterOutput{}, newError(ErrorInvalidConfig, "unknown_provider",
			domain.ProviderConfig{Kind: domain.ProviderKind(in.Provider)}.Validate())
	}
	cfg := in.Config
	cfg.Kind = kind
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return RegisterOutput{}, newError(ErrorInvalidConfig, "invalid_provider_config", err)
	}

	persisted := false
	if s.table != nil {
		if err := s.table.Upsert(ctx, userID, kind, cfg); err != nil {
			slog.Warn("usecase: provider table upsert failed, keeping config in memory", "user_id", userID, "err", err)
		} else {
			persisted = true
		}
	}

	if err := s.store.Set(userID, cfg, 0); err != nil {
		return RegisterOutput{}, newError(ErrorInternal, "credential_store_error", err)
	}

	slog.Info("usecase: provider registered", "user_id", userID, "provider", kind, "persisted", persisted)
	return RegisterOutput{Persisted: persisted}, nil
}

// Lookup returns the live config for userID: memory first, then the table.
// A table hit is copied back into memory. Table failures are logged and
// treated as a miss.
func (s *ProviderService) Lookup(ctx context.Context, userID string) (domain.ProviderConfig, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ProviderConfig{}, false, nil
	}
	if cfg, ok := s.store.Get(userID); ok {
		return cfg, true, nil
	}
	if s.table == nil {
		return domain.ProviderConfig{}, false, nil
	}

	rec, ok, err := s.table.FetchOne(ctx, userID)
	if err != nil {
		slog.Warn("usecase: provider table fetch failed, using memory only", "user_id", userID, "err", err)
		return domain.ProviderConfig{}, false, nil
	}
	if !ok {
		return domain.ProviderConfig{}, false, nil
	}
	if err := s.store.Set(userID, rec.Config, 0); err != nil {
		slog.Warn("usecase: stored provider config is invalid", "user_id", userID, "err", err)
		return domain.ProviderConfig{}, false, nil
	}
	return rec.Config.Normalized(), true, nil
}

// Get returns the masked config for userID.
func (s *ProviderService) Get(ctx context.Context, userID string) (domain.ProviderConfig, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.ProviderConfig{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	cfg, ok, err := s.Lookup(ctx, userID)
	if err != nil {
		return domain.ProviderConfig{}, newError(ErrorInternal, "provider_lookup_error", err)
	}
	if !ok {
		return domain.ProviderConfig{}, newError(ErrorNotFound, "no_provider_configured", nil)
	}
	return credentials.Mask(cfg), nil
}

// Delete clears userID from memory and the table. Deleting a user with no
// config is not an error.
func (s *ProviderService) Delete(ctx context.Context, userID string) (DeleteOutput, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DeleteOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	deleted := s.store.Delete(userID)
	if s.table != nil {
		removed, err := s.table.Delete(ctx, userID)
		if err != nil {
			slog.Warn("usecase: provider table delete failed, memory cleared", "user_id", userID, "err", err)
		}
		deleted = deleted || removed
	}

	slog.Info("usecase: provider deleted", "user_id", userID, "deleted", deleted)
	return DeleteOutput{Deleted: deleted}, nil
}
