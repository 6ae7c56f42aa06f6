package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTimeout = 500 * time.Millisecond

// cached returns the stored admin summary. Cache failures read as a miss.
func (s *Service) cached(ctx context.Context) (AdminStats, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return AdminStats{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	raw, err := s.cache.Get(ctx, adminSummary).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("admin stats cache lookup failed", slog.Any("error", err))
		}
		return AdminStats{}, false
	}
	var stats AdminStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		if s.logger != nil {
			s.logger.Warn("admin stats cache entry unreadable", slog.Any("error", err))
		}
		return AdminStats{}, false
	}
	return stats, true
}

func (s *Service) store(ctx context.Context, stats AdminStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, adminSummary, payload, s.cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("admin stats cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops the cached admin summary after a write that changes it.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Del(ctx, adminSummary).Err(); err != nil && s.logger != nil {
		s.logger.Warn("admin stats cache invalidation failed", slog.Any("error", err))
	}
}
