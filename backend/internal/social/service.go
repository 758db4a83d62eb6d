// Package social manages FOLLOWS and FRIEND_OF edges between users.
package social

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"socialblog/backend/internal/graph"
	"socialblog/backend/pkg/logger"
)

// ErrSelfRelation is returned when a user targets themselves and the policy forbids it
var ErrSelfRelation = errors.New("a user cannot follow or befriend themselves")

// Policy controls which degenerate relations are accepted
type Policy struct {
	AllowSelfFollow bool
	AllowSelfFriend bool
}

// Service owns the social edges. FRIEND_OF is only ever written as a pair.
type Service struct {
	store  graph.Store
	policy Policy
	logger *zap.Logger
}

// NewService creates a relationship service
func NewService(store graph.Store, policy Policy) *Service {
	return &Service{
		store:  store,
		policy: policy,
		logger: logger.Named("social"),
	}
}

// ============================================================================
// Follows
// ============================================================================

// Follow creates followerID -> followedID. Returns false when either user node is missing.
// Following twice leaves a single edge.
func (s *Service) Follow(ctx context.Context, followerID, followedID int64) (bool, error) {
	if followerID == followedID && !s.policy.AllowSelfFollow {
		return false, ErrSelfRelation
	}

	ok, err := s.store.Connect(ctx, followEdge(followerID, followedID))
	if err != nil {
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	if ok {
		s.logger.Info("User followed",
			zap.Int64("follower_id", followerID),
			zap.Int64("followed_id", followedID))
	}
	return ok, nil
}

// Unfollow removes the edge. An absent edge between existing users is still true.
func (s *Service) Unfollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	ok, err := s.store.Disconnect(ctx, followEdge(followerID, followedID))
	if err != nil {
		return false, fmt.Errorf("failed to unfollow: %w", err)
	}
	if ok {
		s.logger.Info("User unfollowed",
			zap.Int64("follower_id", followerID),
			zap.Int64("followed_id", followedID))
	}
	return ok, nil
}

// IsFollowing reports whether followerID follows followedID
func (s *Service) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	return s.store.HasEdge(ctx, followEdge(followerID, followedID))
}

func followEdge(followerID, followedID int64) graph.Edge {
	return graph.Edge{From: graph.UserRef(followerID), Rel: graph.RelFollows, To: graph.UserRef(followedID)}
}

// ============================================================================
// Friends
// ============================================================================

// AddFriend writes both FRIEND_OF directions in one store call. If either
// user is missing neither edge is created.
func (s *Service) AddFriend(ctx context.Context, userA, userB int64) (bool, error) {
	if userA == userB && !s.policy.AllowSelfFriend {
		return false, ErrSelfRelation
	}

	ok, err := s.store.ConnectPair(ctx, userA, userB, graph.RelFriendOf)
	if err != nil {
		return false, fmt.Errorf("failed to add friend: %w", err)
	}
	if ok {
		s.logger.Info("Friendship created", zap.Int64("user_a", userA), zap.Int64("user_b", userB))
	}
	return ok, nil
}

// RemoveFriend deletes both FRIEND_OF directions in one store call
func (s *Service) RemoveFriend(ctx context.Context, userA, userB int64) (bool, error) {
	ok, err := s.store.DisconnectPair(ctx, userA, userB, graph.RelFriendOf)
	if err != nil {
		return false, fmt.Errorf("failed to remove friend: %w", err)
	}
	if ok {
		s.logger.Info("Friendship removed", zap.Int64("user_a", userA), zap.Int64("user_b", userB))
	}
	return ok, nil
}

// ============================================================================
// Listings
// ============================================================================

// Followers lists users following userID; empty when the user node is missing
func (s *Service) Followers(ctx context.Context, userID int64) ([]graph.UserNode, error) {
	return s.store.Neighbors(ctx, userID, graph.RelFollows, graph.Incoming)
}

// Following lists users userID follows
func (s *Service) Following(ctx context.Context, userID int64) ([]graph.UserNode, error) {
	return s.store.Neighbors(ctx, userID, graph.RelFollows, graph.Outgoing)
}

// Friends lists userID's friends
func (s *Service) Friends(ctx context.Context, userID int64) ([]graph.UserNode, error) {
	return s.store.Neighbors(ctx, userID, graph.RelFriendOf, graph.Outgoing)
}
