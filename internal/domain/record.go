package domain

import "time"

// ProviderRecord is a provider configuration as persisted for one user.
type ProviderRecord struct {
	UserID    string
	Config    ProviderConfig
	UpdatedAt time.Time
}
