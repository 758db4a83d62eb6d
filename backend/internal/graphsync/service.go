// Package graphsync projects relational entity mutations onto the graph.
// Every call is best-effort: it reports an Outcome instead of an error so
// the relational write that triggered it is never rolled back.
package graphsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/hashtag"
	"socialblog/backend/pkg/logger"
)

// Service translates entity changes into idempotent graph upserts and edge operations
type Service struct {
	store  graph.Store
	logger *zap.Logger
}

// NewService creates a sync service over the shared graph store
func NewService(store graph.Store) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("graphsync"),
	}
}

// ============================================================================
// Users
// ============================================================================

// UpsertUser creates the user node or overwrites its mutable fields
func (s *Service) UpsertUser(ctx context.Context, user graph.UserNode) (*graph.UserNode, Outcome) {
	node, err := s.store.UpsertUser(ctx, user)
	if err != nil {
		return nil, outcomeOf("upsert user", err)
	}
	return node, OK()
}

// DeleteUser removes the user node and every edge touching it
func (s *Service) DeleteUser(ctx context.Context, userID int64) (bool, Outcome) {
	deleted, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return false, outcomeOf("delete user", err)
	}
	if !deleted {
		return false, Skipped("user node absent")
	}
	return true, OK()
}

// ============================================================================
// Posts
// ============================================================================

// CreatePost mirrors a post under its author and tags it with its hashtags.
// The author node must already exist; the caller upserts it first.
func (s *Service) CreatePost(ctx context.Context, postID, userID int64, content string, createdAt time.Time) (*graph.PostNode, Outcome) {
	tags := hashtag.Extract(content)
	node, err := s.store.CreatePost(ctx, userID, graph.PostNode{
		PostID:    postID,
		Content:   content,
		CreatedAt: createdAt,
	}, tags)
	if err != nil {
		return nil, outcomeOf("create post", err)
	}

	s.logger.Debug("Post projected", zap.Int64("post_id", postID), zap.Strings("tags", tags))
	return node, OK()
}

// UpdatePost replaces the content and re-derives the tag set from scratch.
// Tags missing from the new content lose their edge.
func (s *Service) UpdatePost(ctx context.Context, postID int64, content string) (*graph.PostNode, Outcome) {
	tags := hashtag.Extract(content)
	node, err := s.store.UpdatePost(ctx, graph.PostNode{PostID: postID, Content: content}, tags)
	if err != nil {
		return nil, outcomeOf("update post", err)
	}
	return node, OK()
}

// DeletePost removes the post node and its incident edges
func (s *Service) DeletePost(ctx context.Context, postID int64) (bool, Outcome) {
	deleted, err := s.store.DeletePost(ctx, postID)
	if err != nil {
		return false, outcomeOf("delete post", err)
	}
	if !deleted {
		return false, Skipped("post node absent")
	}
	return true, OK()
}

// ============================================================================
// Comments
// ============================================================================

// CreateComment requires both the author and the post nodes
func (s *Service) CreateComment(ctx context.Context, commentID, userID, postID int64, content string, createdAt time.Time) (*graph.CommentNode, Outcome) {
	node, err := s.store.CreateComment(ctx, userID, postID, graph.CommentNode{
		CommentID: commentID,
		Content:   content,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, outcomeOf("create comment", err)
	}
	return node, OK()
}

func (s *Service) DeleteComment(ctx context.Context, commentID int64) (bool, Outcome) {
	deleted, err := s.store.DeleteComment(ctx, commentID)
	if err != nil {
		return false, outcomeOf("delete comment", err)
	}
	if !deleted {
		return false, Skipped("comment node absent")
	}
	return true, OK()
}

// ============================================================================
// Likes and Interests
// ============================================================================

func (s *Service) LikePost(ctx context.Context, userID, postID int64) Outcome {
	return s.edge(ctx, "like post", graph.Edge{From: graph.UserRef(userID), Rel: graph.RelLikes, To: graph.PostRef(postID)}, true)
}

func (s *Service) UnlikePost(ctx context.Context, userID, postID int64) Outcome {
	return s.edge(ctx, "unlike post", graph.Edge{From: graph.UserRef(userID), Rel: graph.RelLikes, To: graph.PostRef(postID)}, false)
}

// AddInterest declares an interest for the user, creating the interest node if needed
func (s *Service) AddInterest(ctx context.Context, userID int64, name, description string) Outcome {
	interest, err := s.store.UpsertInterest(ctx, hashtag.Normalize(name), description)
	if err != nil {
		return outcomeOf("add interest", err)
	}
	return s.edge(ctx, "add interest", graph.Edge{From: graph.UserRef(userID), Rel: graph.RelInterestedIn, To: graph.InterestRef(interest.Name)}, true)
}

func (s *Service) RemoveInterest(ctx context.Context, userID int64, name string) Outcome {
	ref := graph.InterestRef(hashtag.Normalize(name))
	return s.edge(ctx, "remove interest", graph.Edge{From: graph.UserRef(userID), Rel: graph.RelInterestedIn, To: ref}, false)
}

func (s *Service) edge(ctx context.Context, op string, edge graph.Edge, connect bool) Outcome {
	var (
		ok  bool
		err error
	)
	if connect {
		ok, err = s.store.Connect(ctx, edge)
	} else {
		ok, err = s.store.Disconnect(ctx, edge)
	}
	if err != nil {
		return outcomeOf(op, err)
	}
	if !ok {
		return Skipped(edge.From.String() + " or " + edge.To.String() + " absent")
	}
	return OK()
}
