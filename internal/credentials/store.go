// Package credentials holds per-user provider configuration in memory with a
// time-to-live and a scheduled expiry sweep.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"byom-relay/internal/domain"
)

const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

var ErrEmptyUserID = errors.New("credentials: userId is required")

type entry struct {
	cfg       domain.ProviderConfig
	expiresAt time.Time
}

// Store is a mutex-guarded map of user id to provider configuration. Entries
// expire lazily on read and proactively on every sweep.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	sched *cron.Cron
}

type Option func(*Store)

// WithTTL sets the lifetime used when Set is called without one.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often expired entries are purged. A negative
// interval disables the scheduled sweep; Sweep can still be called directly.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d != 0 {
			s.sweepInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store and starts its sweep schedule. Call Close to stop it.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		entries:       make(map[string]entry),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval > 0 {
		s.sched = cron.New()
		if _, err := s.sched.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), func() {
			if n := s.Sweep(); n > 0 {
				slog.Info("credentials: swept expired entries", "removed", n)
			}
		}); err != nil {
			return nil, fmt.Errorf("credentials: schedule sweep: %w", err)
		}
		s.sched.Start()
	}
	return s, nil
}

// Close stops the sweep schedule and waits for a running sweep to finish.
func (s *Store) Close() {
	if s.sched == nil {
		return
	}
	<-s.sched.Stop().Done()
}

// Set validates cfg and stores it for userID, replacing any previous entry.
// A non-positive ttl uses the store default.
func (s *Store) Set(userID string, cfg domain.ProviderConfig, ttl time.Duration) error {
	id := strings.TrimSpace(userID)
	if id == "" {
		return ErrEmptyUserID
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("credentials: set %q: %w", id, err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry{cfg: cfg, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns the live config for userID. An expired entry is removed and
// reported as absent.
func (s *Store) Get(userID string) (domain.ProviderConfig, bool) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return domain.ProviderConfig{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.ProviderConfig{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return domain.ProviderConfig{}, false
	}
	return e.cfg, true
}

// Delete removes userID and reports whether an entry was present.
func (s *Store) Delete(userID string) bool {
	id := strings.TrimSpace(userID)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Sweep removes every entry whose expiry has passed and returns the count.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
