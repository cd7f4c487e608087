package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// cacheEntry is the stored form of a scoped value.
type cacheEntry struct {
	Generation uint64          `json:"generation"`
	Value      json.RawMessage `json:"value"`
}

// CacheService keeps derived payloads grouped into scopes. Each scope has a
// generation that Advance moves forward whenever the underlying data changes.
// Entries remember the generation they were computed under and read back as
// misses once the scope has moved on, so a value computed before a change can
// never be served after it.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCacheService constructs a cache service. A nil repo or enabled=false
// turns reads and writes into no-ops while generations are still tracked.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:        repo,
		metrics:     metrics,
		defaultTTL:  defaultTTL,
		logger:      logger,
		enabled:     enabled,
		generations: make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Generation returns the current generation of scope.
func (s *CacheService) Generation(scope string) uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[scope]
}

// Advance moves scope to a new generation, retiring every entry written under
// an earlier one.
func (s *CacheService) Advance(scope string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.generations[scope]++
	s.mu.Unlock()
}

// Lookup decodes the entry stored under key into dest. It reports a hit only
// when the entry belongs to the current generation of scope.
func (s *CacheService) Lookup(ctx context.Context, scope, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	var entry cacheEntry
	err := s.repo.Get(ctx, key, &entry)
	duration := time.Since(start)
	switch {
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.metrics.RecordCacheOperation(false, duration)
		return false, nil
	case err != nil:
		s.metrics.RecordCacheOperation(false, duration)
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if entry.Generation != s.Generation(scope) {
		s.metrics.RecordCacheOperation(false, duration)
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		s.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Store writes value under key if scope is still at generation. It reports
// whether the write happened. A zero ttl uses the service default.
func (s *CacheService) Store(ctx context.Context, scope string, generation uint64, key string, value interface{}, ttl time.Duration) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	// Holding mu across the write keeps Advance from slipping in between the
	// generation check and the write.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[scope] != generation {
		s.logger.Debug("cache write skipped for retired generation",
			zap.String("key", key), zap.Uint64("generation", generation))
		return false, nil
	}
	start := time.Now()
	err = s.repo.Set(ctx, key, cacheEntry{Generation: generation, Value: encoded}, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Invalidate removes cached values whose keys match the glob pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
