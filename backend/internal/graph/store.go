package graph

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "socialblog/backend/pkg/errors"
)

// Store is the operation surface over a property-graph backend.
// Neo4jStore and MemoryStore both implement it.
type Store interface {
	// Lifecycle
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Clear(ctx context.Context) error

	// Users
	UpsertUser(ctx context.Context, user UserNode) (*UserNode, error)
	GetUser(ctx context.Context, userID int64) (*UserNode, error)
	GetUserByUsername(ctx context.Context, username string) (*UserNode, error)
	DeleteUser(ctx context.Context, userID int64) (bool, error)

	// Posts. tags replaces the post's full TAGGED_WITH edge set.
	CreatePost(ctx context.Context, authorID int64, post PostNode, tags []string) (*PostNode, error)
	UpdatePost(ctx context.Context, post PostNode, tags []string) (*PostNode, error)
	GetPost(ctx context.Context, postID int64) (*PostNode, error)
	DeletePost(ctx context.Context, postID int64) (bool, error)
	PostTags(ctx context.Context, postID int64) ([]InterestNode, error)

	// Comments
	CreateComment(ctx context.Context, authorID, postID int64, comment CommentNode) (*CommentNode, error)
	GetComment(ctx context.Context, commentID int64) (*CommentNode, error)
	DeleteComment(ctx context.Context, commentID int64) (bool, error)
	PostComments(ctx context.Context, postID int64) ([]CommentNode, error)

	// Interests
	UpsertInterest(ctx context.Context, name, description string) (*InterestNode, error)
	GetInterest(ctx context.Context, name string) (*InterestNode, error)

	// Edges. Connect and Disconnect report whether both endpoints exist;
	// connecting an existing edge or disconnecting an absent one is not an error.
	Connect(ctx context.Context, edge Edge) (bool, error)
	Disconnect(ctx context.Context, edge Edge) (bool, error)
	HasEdge(ctx context.Context, edge Edge) (bool, error)
	ConnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error)
	DisconnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error)
	Neighbors(ctx context.Context, userID int64, rel RelType, dir Direction) ([]UserNode, error)

	Traverser
}

// Traverser is the read-only query surface used by analytics.
// Queries rooted at a missing user return empty results, never an error.
type Traverser interface {
	SuggestFriends(ctx context.Context, userID int64, limit int) ([]UserScore, error)
	SuggestFollows(ctx context.Context, userID int64, limit int) ([]UserScore, error)
	CommonInterests(ctx context.Context, userA, userB int64) ([]InterestNode, error)
	TrendingInterests(ctx context.Context, limit int) ([]InterestCount, error)
	Influencers(ctx context.Context, limit int) ([]UserScore, error)
	NetworkStats(ctx context.Context, userID int64) (NetworkStats, error)
	EgoNetwork(ctx context.Context, userID int64) (EgoNetwork, error)
	Feed(ctx context.Context, userID int64, limit int) ([]PostNode, error)
	UserPosts(ctx context.Context, userID int64, limit int) ([]PostNode, error)
	AllPosts(ctx context.Context, limit int) ([]PostNode, error)
	PostsByInterest(ctx context.Context, name string, limit int) ([]PostNode, error)
	UserInterests(ctx context.Context, userID int64) ([]InterestNode, error)
	PostLikeCount(ctx context.Context, postID int64) (int64, error)
	HasLiked(ctx context.Context, userID, postID int64) (bool, error)
}

// IsNotFound reports whether err means a referenced node is absent
func IsNotFound(err error) bool {
	var target *apperrors.ErrGraphNotFound
	return stderrors.As(err, &target)
}

// IsUnavailable reports whether err means the backend could not be reached
func IsUnavailable(err error) bool {
	var target *apperrors.ErrGraphUnavailable
	return stderrors.As(err, &target)
}

// IsConstraint reports whether err is a unique-constraint violation
func IsConstraint(err error) bool {
	var target *apperrors.ErrGraphConstraint
	return stderrors.As(err, &target)
}

func notFound(ref Ref) error {
	return apperrors.NewGraphNotFound(string(ref.Kind), fmt.Sprint(ref.key()))
}

// validateEdge rejects relations whose endpoints do not match their declared kinds
func validateEdge(edge Edge) error {
	kinds, ok := endpoints[edge.Rel]
	if !ok {
		return fmt.Errorf("unknown relation type: %s", edge.Rel)
	}
	if edge.From.Kind != kinds[0] || edge.To.Kind != kinds[1] {
		return fmt.Errorf("relation %s connects %s to %s, got %s to %s",
			edge.Rel, kinds[0], kinds[1], edge.From.Kind, edge.To.Kind)
	}
	return nil
}

// applyLimit truncates a ranked slice; a non-positive limit means unbounded
func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// normalizeName lower-cases and trims an interest name
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeTags lower-cases tag names and drops blanks and duplicates, keeping first-seen order
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := normalizeName(tag)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
