package blog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/trigger"
	"socialblog/backend/pkg/logger"
)

// Hooks receives every committed change. Implementations must not fail the
// write: problems are reported through the returned Outcome only.
type Hooks interface {
	OnUserSaved(ctx context.Context, e trigger.UserSaved) graphsync.Outcome
	OnPostCreated(ctx context.Context, e trigger.PostChanged) graphsync.Outcome
	OnPostUpdated(ctx context.Context, e trigger.PostChanged) graphsync.Outcome
	OnPostDeleted(ctx context.Context, e trigger.PostChanged) graphsync.Outcome
	OnCommentCreated(ctx context.Context, e trigger.CommentChanged) graphsync.Outcome
	OnCommentDeleted(ctx context.Context, e trigger.CommentChanged) graphsync.Outcome
	OnLikeToggled(ctx context.Context, e trigger.LikeToggled) graphsync.Outcome
}

var _ Hooks = (*trigger.Syncer)(nil)

// Service runs the blog write paths: commit first, then notify hooks.
type Service struct {
	repo   *Repository
	hooks  Hooks
	logger *zap.Logger
}

func NewService(repo *Repository, hooks Hooks) *Service {
	return &Service{
		repo:   repo,
		hooks:  hooks,
		logger: logger.Named("blog"),
	}
}

// Repository exposes the underlying store for read paths
func (s *Service) Repository() *Repository {
	return s.repo
}

// ============================================================================
// Users
// ============================================================================

func (s *Service) SaveUser(ctx context.Context, user *User) (*User, error) {
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	s.hooks.OnUserSaved(ctx, UserEvent(user))
	return user, nil
}

// SyncUsers replays the stored state of each user to the hooks. Callers use
// it before writing social edges so both endpoints exist in the graph.
func (s *Service) SyncUsers(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		user, err := s.repo.GetUser(ctx, id)
		if err != nil {
			return err
		}
		s.hooks.OnUserSaved(ctx, UserEvent(user))
	}
	return nil
}

// UserEvent describes user as a saved-user event
func UserEvent(user *User) trigger.UserSaved {
	return trigger.UserSaved{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Bio:        user.Bio(),
		DateJoined: user.DateJoined,
	}
}

// ============================================================================
// Posts
// ============================================================================

func (s *Service) CreatePost(ctx context.Context, authorID int64, content string) (*Post, error) {
	post, err := s.repo.CreatePost(ctx, authorID, content)
	if err != nil {
		return nil, err
	}

	event := PostEvent(post)
	if post.Author != nil {
		author := UserEvent(post.Author)
		event.Author = &author
	}
	s.hooks.OnPostCreated(ctx, event)
	return post, nil
}

// UpdatePost changes the content of a post owned by actorID
func (s *Service) UpdatePost(ctx context.Context, actorID, postID int64, content string) (*Post, error) {
	if err := s.authorize(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err := s.repo.UpdatePost(ctx, postID, content)
	if err != nil {
		return nil, err
	}
	s.hooks.OnPostUpdated(ctx, PostEvent(post))
	return post, nil
}

// DeletePost removes a post owned by actorID. Its comments are unlinked from
// the graph before the post itself.
func (s *Service) DeletePost(ctx context.Context, actorID, postID int64) error {
	if err := s.authorize(ctx, actorID, postID); err != nil {
		return err
	}

	post, comments, err := s.repo.DeletePost(ctx, postID)
	if err != nil {
		return err
	}
	for i := range comments {
		s.hooks.OnCommentDeleted(ctx, CommentEvent(&comments[i]))
	}
	s.hooks.OnPostDeleted(ctx, PostEvent(post))

	s.logger.Info("Post deleted", zap.Int64("post_id", postID), zap.Int("comments", len(comments)))
	return nil
}

func (s *Service) authorize(ctx context.Context, actorID, postID int64) error {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return fmt.Errorf("%w: post %d", ErrNotAuthor, postID)
	}
	return nil
}

func PostEvent(post *Post) trigger.PostChanged {
	return trigger.PostChanged{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	}
}

// ============================================================================
// Comments & Likes
// ============================================================================

func (s *Service) CreateComment(ctx context.Context, authorID, postID int64, content string) (*Comment, error) {
	comment, err := s.repo.CreateComment(ctx, authorID, postID, content)
	if err != nil {
		return nil, err
	}
	s.hooks.OnCommentCreated(ctx, CommentEvent(comment))
	return comment, nil
}

// DeleteComment removes a comment written by actorID
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return fmt.Errorf("%w: comment %d", ErrNotAuthor, commentID)
	}

	comment, err = s.repo.DeleteComment(ctx, commentID)
	if err != nil {
		return err
	}
	s.hooks.OnCommentDeleted(ctx, CommentEvent(comment))
	return nil
}

func CommentEvent(comment *Comment) trigger.CommentChanged {
	return trigger.CommentChanged{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

// ToggleLike flips the like and returns the new state and count
func (s *Service) ToggleLike(ctx context.Context, userID, postID int64) (bool, int64, error) {
	liked, count, err := s.repo.ToggleLike(ctx, userID, postID)
	if err != nil {
		return false, 0, err
	}
	s.hooks.OnLikeToggled(ctx, trigger.LikeToggled{UserID: userID, PostID: postID, Liked: liked})
	return liked, count, nil
}

// LikeEvent describes a stored like row
func LikeEvent(like PostLike) trigger.LikeToggled {
	return trigger.LikeToggled{UserID: like.UserID, PostID: like.PostID, Liked: true}
}
