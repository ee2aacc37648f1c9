package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/healthtracker/models"
)

const (
	statsCacheKey   = "cache:stats"
	statsGenKey     = "cache:stats:gen"
	defaultCacheTTL = time.Minute
	cacheOpTimeout  = 2 * time.Second
)

var errStaleStats = errors.New("stats changed while computing")

// StatsCache keeps the last computed stats aggregate in Redis.
// A nil *StatsCache or one without a client is a valid no-op cache.
type StatsCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewStatsCache wraps rc; rc may be nil.
func NewStatsCache(rc *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &StatsCache{rc: rc, ttl: ttl}
}

func (s *StatsCache) enabled() bool {
	return s != nil && s.rc != nil
}

// Get returns the cached aggregate. Misses and Redis errors both report false.
func (s *StatsCache) Get(ctx context.Context) (models.Stats, bool) {
	var st models.Stats
	if !s.enabled() {
		return st, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := s.rc.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Debugf("cache get failed key=%s err=%v", statsCacheKey, err)
		}
		return st, false
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, false
	}
	return st, true
}

// Generation returns the write counter to pass to SetIfGeneration. Read it before
// computing the aggregate. A negative value means the counter is unavailable.
func (s *StatsCache) Generation(ctx context.Context) int64 {
	if !s.enabled() {
		return -1
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	gen, err := s.rc.Get(ctx, statsGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		Sugar.Debugf("cache generation failed key=%s err=%v", statsGenKey, err)
		return -1
	}
	return gen
}

// SetIfGeneration stores the aggregate unless a write was invalidated after gen was read.
// It reports whether the value was stored.
func (s *StatsCache) SetIfGeneration(ctx context.Context, gen int64, st models.Stats) bool {
	if !s.enabled() || gen < 0 {
		return false
	}
	b, err := json.Marshal(st)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	err = s.rc.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, statsGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleStats
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsCacheKey, b, s.ttl)
			return nil
		})
		return err
	}, statsGenKey)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleStats), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		Sugar.Warnf("cache set failed key=%s err=%v", statsCacheKey, err)
		return false
	}
}

// Invalidate bumps the write counter and drops the cached aggregate. Called after every write.
func (s *StatsCache) Invalidate(ctx context.Context) {
	if !s.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenKey)
		pipe.Del(ctx, statsCacheKey)
		return nil
	})
	if err != nil {
		Sugar.Warnf("cache invalidate failed key=%s err=%v", statsCacheKey, err)
	}
}
