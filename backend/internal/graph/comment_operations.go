package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Comment Operations
// ============================================================================

// CreateComment connects a comment to its author and its post.
// Both must already exist; the first missing one is reported as ErrGraphNotFound.
func (s *Neo4jStore) CreateComment(ctx context.Context, authorID, postID int64, comment CommentNode) (*CommentNode, error) {
	created := comment.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	query := `
		MATCH (u:UserNode {user_id: $author_id}), (p:PostNode {post_id: $post_id})
		MERGE (c:CommentNode {comment_id: $comment_id})
		ON CREATE SET c.created_at = datetime($created_at)
		SET c.content = $content
		MERGE (u)-[:COMMENTED]->(c)
		MERGE (c)-[:COMMENT_ON]->(p)
		RETURN c
	`

	var missing *Ref
	out, err := s.write(ctx, "create comment", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{
			"author_id":  authorID,
			"post_id":    postID,
			"comment_id": comment.CommentID,
			"content":    comment.Content,
			"created_at": created.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		if record == nil {
			missing, err = missingRef(ctx, tx, UserRef(authorID), PostRef(postID))
			return nil, err
		}
		node := commentFromProps(getPropsFromRecord(record, "c"))
		node.AuthorID = authorID
		node.PostID = postID
		return &node, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment %d: %w", comment.CommentID, err)
	}
	if out == nil {
		if missing == nil {
			missing = &Ref{Kind: KindPost, ID: postID}
		}
		return nil, notFound(*missing)
	}

	s.logger.Info("Comment created",
		zap.Int64("comment_id", comment.CommentID),
		zap.Int64("post_id", postID),
		zap.Int64("author_id", authorID))
	return out.(*CommentNode), nil
}

// GetComment returns the comment with its author and post ids
func (s *Neo4jStore) GetComment(ctx context.Context, commentID int64) (*CommentNode, error) {
	query := `
		MATCH (c:CommentNode {comment_id: $comment_id})
		OPTIONAL MATCH (a:UserNode)-[:COMMENTED]->(c)
		OPTIONAL MATCH (c)-[:COMMENT_ON]->(p:PostNode)
		RETURN c, a.user_id AS author_id, p.post_id AS post_id
		LIMIT 1
	`

	out, err := s.read(ctx, "get comment", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"comment_id": commentID})
		if err != nil || record == nil {
			return nil, err
		}
		node := commentFromProps(getPropsFromRecord(record, "c"))
		node.AuthorID = getInt64FromRecord(record, "author_id")
		node.PostID = getInt64FromRecord(record, "post_id")
		return &node, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, notFound(CommentRef(commentID))
	}
	return out.(*CommentNode), nil
}

// DeleteComment removes the comment node and its edges
func (s *Neo4jStore) DeleteComment(ctx context.Context, commentID int64) (bool, error) {
	return s.detachDelete(ctx, CommentRef(commentID))
}

// PostComments lists the comments on a post, oldest first
func (s *Neo4jStore) PostComments(ctx context.Context, postID int64) ([]CommentNode, error) {
	query := `
		MATCH (c:CommentNode)-[:COMMENT_ON]->(p:PostNode {post_id: $post_id})
		OPTIONAL MATCH (a:UserNode)-[:COMMENTED]->(c)
		RETURN c, a.user_id AS author_id, p.post_id AS post_id
		ORDER BY c.created_at ASC, c.comment_id ASC
	`

	out, err := s.read(ctx, "post comments", func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, map[string]any{"post_id": postID})
		if err != nil {
			return nil, err
		}
		comments := make([]CommentNode, 0, len(records))
		for _, record := range records {
			node := commentFromProps(getPropsFromRecord(record, "c"))
			node.AuthorID = getInt64FromRecord(record, "author_id")
			node.PostID = getInt64FromRecord(record, "post_id")
			comments = append(comments, node)
		}
		return comments, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]CommentNode), nil
}
