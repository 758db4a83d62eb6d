// Package backfill replays the whole relational store onto the graph. It is
// used to seed an empty graph or repair one after missed sync events.
package backfill

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialblog/backend/internal/blog"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/pkg/logger"
)

const DefaultConcurrency = 8

// Source lists relational rows; *blog.Repository implements it
type Source interface {
	ListUsers(ctx context.Context) ([]blog.User, error)
	ListPosts(ctx context.Context, limit int) ([]blog.Post, error)
	ListAllComments(ctx context.Context) ([]blog.Comment, error)
	ListLikes(ctx context.Context) ([]blog.PostLike, error)
}

// Clearer wipes the graph before a full replay
type Clearer interface {
	Clear(ctx context.Context) error
}

type Options struct {
	Clear       bool
	Concurrency int
}

// Report counts replicated rows per kind. Skipped and Failed cover all kinds.
type Report struct {
	Users    int64         `json:"users"`
	Posts    int64         `json:"posts"`
	Comments int64         `json:"comments"`
	Likes    int64         `json:"likes"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Runner struct {
	source Source
	hooks  blog.Hooks
	graph  Clearer
	logger *zap.Logger
}

func NewRunner(source Source, hooks blog.Hooks, graph Clearer) *Runner {
	return &Runner{
		source: source,
		hooks:  hooks,
		graph:  graph,
		logger: logger.Named("backfill"),
	}
}

// Run replays users, then posts, then comments and likes. Per-row failures
// are counted in the Report; only clear, listing and cancellation errors
// abort the run.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	start := time.Now()
	var (
		report          Report
		skipped, failed atomic.Int64
	)
	t := tally{concurrency: opts.Concurrency, skipped: &skipped, failed: &failed}

	if opts.Clear {
		r.logger.Info("Clearing graph before backfill")
		if err := r.graph.Clear(ctx); err != nil {
			return report, fmt.Errorf("failed to clear graph: %w", err)
		}
	}

	users, err := r.source.ListUsers(ctx)
	if err != nil {
		return report, err
	}
	if report.Users, err = replay(ctx, t, users, func(ctx context.Context, u blog.User) graphsync.Outcome {
		return r.hooks.OnUserSaved(ctx, blog.UserEvent(&u))
	}); err != nil {
		return report, err
	}
	r.logger.Info("Users replicated", zap.Int64("count", report.Users), zap.Int("total", len(users)))

	posts, err := r.source.ListPosts(ctx, 0)
	if err != nil {
		return report, err
	}
	if report.Posts, err = replay(ctx, t, posts, func(ctx context.Context, p blog.Post) graphsync.Outcome {
		return r.hooks.OnPostCreated(ctx, blog.PostEvent(&p))
	}); err != nil {
		return report, err
	}
	r.logger.Info("Posts replicated", zap.Int64("count", report.Posts), zap.Int("total", len(posts)))

	comments, err := r.source.ListAllComments(ctx)
	if err != nil {
		return report, err
	}
	likes, err := r.source.ListLikes(ctx)
	if err != nil {
		return report, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Comments, err = replay(gctx, t, comments, func(ctx context.Context, c blog.Comment) graphsync.Outcome {
			return r.hooks.OnCommentCreated(ctx, blog.CommentEvent(&c))
		})
		return err
	})
	g.Go(func() error {
		var err error
		report.Likes, err = replay(gctx, t, likes, func(ctx context.Context, l blog.PostLike) graphsync.Outcome {
			return r.hooks.OnLikeToggled(ctx, blog.LikeEvent(l))
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Skipped = skipped.Load()
	report.Failed = failed.Load()
	report.Duration = time.Since(start)

	r.logger.Info("Backfill completed",
		zap.Int64("users", report.Users),
		zap.Int64("posts", report.Posts),
		zap.Int64("comments", report.Comments),
		zap.Int64("likes", report.Likes),
		zap.Int64("skipped", report.Skipped),
		zap.Int64("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

type tally struct {
	concurrency int
	skipped     *atomic.Int64
	failed      *atomic.Int64
}

// replay applies fn to every item with bounded concurrency and returns how
// many came back OK
func replay[T any](ctx context.Context, t tally, items []T, fn func(context.Context, T) graphsync.Outcome) (int64, error) {
	var ok atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch fn(gctx, item).Status {
			case graphsync.StatusOK:
				ok.Add(1)
			case graphsync.StatusSkipped:
				t.skipped.Add(1)
			default:
				t.failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ok.Load(), fmt.Errorf("backfill interrupted: %w", err)
	}
	return ok.Load(), nil
}
