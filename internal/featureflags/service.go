package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // how long repository reads are reused
	Defaults   Defaults
}

// Service evaluates feature flags with a short read cache and a fallback to
// the configured defaults.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service. A nil repository serves
// the defaults only.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: DefaultFlags(cfg.Defaults),
		cache:        make(map[string]*Flag),
	}
}

// GetFlag retrieves a feature flag by key: cache, then repository, then
// the default. Returns nil for an unknown key.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag := s.getCached(key); flag != nil {
		return flag
	}

	if s.repo != nil {
		flag, err := s.repo.GetFlag(ctx, key)
		if err == nil {
			s.setCached(flag)
			return flag
		}
		if !errors.Is(err, ErrFlagNotFound) {
			s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
		}
	}

	return s.defaultFlags[key]
}

// GetAllFlags returns repository flags merged over the defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		result[k] = v
	}
	if s.repo == nil {
		return result
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}
	for k, v := range flags {
		result[k] = v
	}

	s.mu.Lock()
	s.cache = flags
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// ErrNoRepository is returned when updating flags without a repository.
var ErrNoRepository = errors.New("feature flag repository not configured")

// SetFlag updates a feature flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags updates multiple feature flags atomically.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	if s.repo == nil {
		return ErrNoRepository
	}

	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	for _, flag := range flags {
		s.setCached(flag)
		s.logger.Info().Str("flag", flag.Key).Interface("value", flag.Value).Msg("feature flag updated")
	}
	return nil
}

// ResetFlag removes the stored override for key so the default applies
// again. It returns ErrFlagNotFound when no override exists.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	if err := s.repo.DeleteFlag(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	s.logger.Info().Str("flag", key).Msg("feature flag reset to default")
	return nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled reports whether the flag with the given key is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// IgnoreWhileLoading reports whether lookups submitted during a load are dropped.
func (s *Service) IgnoreWhileLoading(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagIgnoreWhileLoading)
}

// AutoLoadLastCity reports whether the last searched city is looked up on startup.
func (s *Service) AutoLoadLastCity(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagAutoLoadLastCity)
}

func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) setCached(flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[flag.Key] = flag
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}
