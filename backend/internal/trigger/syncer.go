// Package trigger is called by the write path after each relational commit and
// replays the change onto the graph. It never returns an error: the outcome is
// logged under a sync id and handed back for the caller to record.
package trigger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"socialblog/backend/internal/graphsync"
	"socialblog/backend/pkg/logger"
)

// Syncer maps relational change events onto graphsync calls
type Syncer struct {
	sync   *graphsync.Service
	logger *zap.Logger
}

// NewSyncer creates a trigger layer over the sync service
func NewSyncer(sync *graphsync.Service) *Syncer {
	return &Syncer{
		sync:   sync,
		logger: logger.Named("trigger"),
	}
}

func (s *Syncer) OnUserSaved(ctx context.Context, e UserSaved) graphsync.Outcome {
	return s.fire(ctx, "user_saved", func(ctx context.Context) graphsync.Outcome {
		_, out := s.sync.UpsertUser(ctx, e.node())
		return out
	}, zap.Int64("user_id", e.ID))
}

// OnPostCreated projects a new post. The author is upserted first when supplied.
func (s *Syncer) OnPostCreated(ctx context.Context, e PostChanged) graphsync.Outcome {
	return s.fire(ctx, "post_created", func(ctx context.Context) graphsync.Outcome {
		if e.Author != nil {
			if _, out := s.sync.UpsertUser(ctx, e.Author.node()); out.Status == graphsync.StatusFailed {
				return out
			}
		}
		_, out := s.sync.CreatePost(ctx, e.ID, e.AuthorID, e.Content, e.CreatedAt)
		return out
	}, zap.Int64("post_id", e.ID), zap.Int64("author_id", e.AuthorID))
}

func (s *Syncer) OnPostUpdated(ctx context.Context, e PostChanged) graphsync.Outcome {
	return s.fire(ctx, "post_updated", func(ctx context.Context) graphsync.Outcome {
		_, out := s.sync.UpdatePost(ctx, e.ID, e.Content)
		return out
	}, zap.Int64("post_id", e.ID))
}

func (s *Syncer) OnPostDeleted(ctx context.Context, e PostChanged) graphsync.Outcome {
	return s.fire(ctx, "post_deleted", func(ctx context.Context) graphsync.Outcome {
		_, out := s.sync.DeletePost(ctx, e.ID)
		return out
	}, zap.Int64("post_id", e.ID))
}

func (s *Syncer) OnCommentCreated(ctx context.Context, e CommentChanged) graphsync.Outcome {
	return s.fire(ctx, "comment_created", func(ctx context.Context) graphsync.Outcome {
		_, out := s.sync.CreateComment(ctx, e.ID, e.AuthorID, e.PostID, e.Content, e.CreatedAt)
		return out
	}, zap.Int64("comment_id", e.ID), zap.Int64("post_id", e.PostID))
}

func (s *Syncer) OnCommentDeleted(ctx context.Context, e CommentChanged) graphsync.Outcome {
	return s.fire(ctx, "comment_deleted", func(ctx context.Context) graphsync.Outcome {
		_, out := s.sync.DeleteComment(ctx, e.ID)
		return out
	}, zap.Int64("comment_id", e.ID))
}

// OnLikeToggled adds or removes the LIKES edge to match the committed state
func (s *Syncer) OnLikeToggled(ctx context.Context, e LikeToggled) graphsync.Outcome {
	return s.fire(ctx, "like_toggled", func(ctx context.Context) graphsync.Outcome {
		if e.Liked {
			return s.sync.LikePost(ctx, e.UserID, e.PostID)
		}
		return s.sync.UnlikePost(ctx, e.UserID, e.PostID)
	}, zap.Int64("user_id", e.UserID), zap.Int64("post_id", e.PostID), zap.Bool("liked", e.Liked))
}

// fire runs one sync step and logs its outcome. A panic in the graph layer
// becomes a Failed outcome.
func (s *Syncer) fire(ctx context.Context, event string, step func(context.Context) graphsync.Outcome, fields ...zap.Field) (out graphsync.Outcome) {
	syncID := uuid.NewString()
	log := s.logger.With(zap.String("sync_id", syncID), zap.String("event", event))

	defer func() {
		if r := recover(); r != nil {
			out = graphsync.Failed(event, fmt.Errorf("panic: %v", r))
		}

		fields = append(fields, zap.Stringer("outcome", out))
		switch out.Status {
		case graphsync.StatusOK:
			log.Debug("Graph sync applied", fields...)
		case graphsync.StatusSkipped:
			log.Info("Graph sync skipped", fields...)
		default:
			log.Warn("Graph sync failed", append(fields, zap.Error(out.Err))...)
		}
	}()

	return step(ctx)
}
