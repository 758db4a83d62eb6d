// Package analytics answers recommendation and ranking queries from the graph.
// Unlike the sync path, failures here are returned to the caller: there is no
// other source for this data.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"socialblog/backend/internal/graph"
	apperrors "socialblog/backend/pkg/errors"
	"socialblog/backend/pkg/logger"
)

const (
	DefaultLimit   = 10
	MaxLimit       = 100
	DefaultTimeout = 5 * time.Second
)

// ErrAnalyticsUnavailable wraps every read-path failure
var ErrAnalyticsUnavailable = errors.New("analytics unavailable")

// Options configures an Engine. A nil Cache disables caching.
type Options struct {
	Timeout  time.Duration
	Cache    Cache
	CacheTTL time.Duration
}

// Engine runs bounded, timed traversal queries
type Engine struct {
	graph    graph.Traverser
	timeout  time.Duration
	cache    Cache
	cacheTTL time.Duration
	sf       singleflight.Group
	logger   *zap.Logger
}

// NewEngine creates an analytics engine over the graph's read surface
func NewEngine(traverser graph.Traverser, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Engine{
		graph:    traverser,
		timeout:  opts.Timeout,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logger.Named("analytics"),
	}
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ============================================================================
// Recommendations
// ============================================================================

// SuggestFriends ranks friends-of-friends by mutual friend count
func (e *Engine) SuggestFriends(ctx context.Context, userID int64, limit int) ([]graph.UserScore, error) {
	return run(ctx, e, "suggest friends", func(ctx context.Context) ([]graph.UserScore, error) {
		return e.graph.SuggestFriends(ctx, userID, NormalizeLimit(limit))
	})
}

// SuggestFollows ranks users sharing interests that userID does not follow yet
func (e *Engine) SuggestFollows(ctx context.Context, userID int64, limit int) ([]graph.UserScore, error) {
	return run(ctx, e, "suggest follows", func(ctx context.Context) ([]graph.UserScore, error) {
		return e.graph.SuggestFollows(ctx, userID, NormalizeLimit(limit))
	})
}

func (e *Engine) CommonInterests(ctx context.Context, userA, userB int64) ([]graph.InterestNode, error) {
	return run(ctx, e, "common interests", func(ctx context.Context) ([]graph.InterestNode, error) {
		return e.graph.CommonInterests(ctx, userA, userB)
	})
}

// ============================================================================
// Global Rankings (cached)
// ============================================================================

// TrendingInterests ranks interests by tagged post count
func (e *Engine) TrendingInterests(ctx context.Context, limit int) ([]graph.InterestCount, error) {
	limit = NormalizeLimit(limit)
	return cached(ctx, e, "trending:"+strconv.Itoa(limit), "trending interests", func(ctx context.Context) ([]graph.InterestCount, error) {
		return e.graph.TrendingInterests(ctx, limit)
	})
}

// Influencers ranks users by follower count
func (e *Engine) Influencers(ctx context.Context, limit int) ([]graph.UserScore, error) {
	limit = NormalizeLimit(limit)
	return cached(ctx, e, "influencers:"+strconv.Itoa(limit), "influencers", func(ctx context.Context) ([]graph.UserScore, error) {
		return e.graph.Influencers(ctx, limit)
	})
}

// ============================================================================
// Per-user Views
// ============================================================================

func (e *Engine) NetworkStats(ctx context.Context, userID int64) (graph.NetworkStats, error) {
	return run(ctx, e, "network stats", func(ctx context.Context) (graph.NetworkStats, error) {
		return e.graph.NetworkStats(ctx, userID)
	})
}

// EgoNetwork returns the user's followers and followed users as one network
func (e *Engine) EgoNetwork(ctx context.Context, userID int64) (graph.EgoNetwork, error) {
	return run(ctx, e, "ego network", func(ctx context.Context) (graph.EgoNetwork, error) {
		return e.graph.EgoNetwork(ctx, userID)
	})
}

// Feed returns posts by userID and the users they follow, newest first
func (e *Engine) Feed(ctx context.Context, userID int64, limit int) ([]graph.PostNode, error) {
	return run(ctx, e, "feed", func(ctx context.Context) ([]graph.PostNode, error) {
		return e.graph.Feed(ctx, userID, NormalizeLimit(limit))
	})
}

func (e *Engine) UserPosts(ctx context.Context, userID int64, limit int) ([]graph.PostNode, error) {
	return run(ctx, e, "user posts", func(ctx context.Context) ([]graph.PostNode, error) {
		return e.graph.UserPosts(ctx, userID, NormalizeLimit(limit))
	})
}

func (e *Engine) PostsByInterest(ctx context.Context, name string, limit int) ([]graph.PostNode, error) {
	return run(ctx, e, "posts by interest", func(ctx context.Context) ([]graph.PostNode, error) {
		return e.graph.PostsByInterest(ctx, name, NormalizeLimit(limit))
	})
}

func (e *Engine) UserInterests(ctx context.Context, userID int64) ([]graph.InterestNode, error) {
	return run(ctx, e, "user interests", func(ctx context.Context) ([]graph.InterestNode, error) {
		return e.graph.UserInterests(ctx, userID)
	})
}

func (e *Engine) PostLikes(ctx context.Context, postID int64) (int64, error) {
	return run(ctx, e, "post likes", func(ctx context.Context) (int64, error) {
		return e.graph.PostLikeCount(ctx, postID)
	})
}

func (e *Engine) HasLiked(ctx context.Context, userID, postID int64) (bool, error) {
	return run(ctx, e, "has liked", func(ctx context.Context) (bool, error) {
		return e.graph.HasLiked(ctx, userID, postID)
	})
}

// ============================================================================
// Query Plumbing
// ============================================================================

// run bounds fn by the engine timeout and wraps any failure in ErrAnalyticsUnavailable
func run[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := fn(ctx)
	if err != nil {
		var zero T
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperrors.NewContextTimeout(op, e.timeout, err)
		}
		e.logger.Warn("Analytics query failed", zap.String("op", op), zap.Error(err))
		return zero, fmt.Errorf("%w: %s: %w", ErrAnalyticsUnavailable, op, err)
	}
	return out, nil
}

// cached serves key from the cache when possible. Concurrent misses for the
// same key share one query. Cache errors are logged and bypassed.
func cached[T any](ctx context.Context, e *Engine, key, op string, fn func(context.Context) (T, error)) (T, error) {
	if e.cache == nil {
		return run(ctx, e, op, fn)
	}

	out, err, _ := e.sf.Do(key, func() (any, error) {
		// Waiters share this call, so it must outlive the first caller.
		ctx := context.WithoutCancel(ctx)
		if data, err := e.cache.Get(ctx, key); err == nil {
			var hit T
			if err := json.Unmarshal(data, &hit); err == nil {
				return hit, nil
			}
			e.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		} else if !errors.Is(err, ErrCacheMiss) {
			e.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		}

		fresh, err := run(ctx, e, op, fn)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(fresh); err == nil {
			if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
				e.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
