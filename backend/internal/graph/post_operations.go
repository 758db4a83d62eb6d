package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Post Operations
// ============================================================================

// CreatePost mirrors a post under its author and connects it to its tags.
// Returns ErrGraphNotFound when the author node is absent.
func (s *Neo4jStore) CreatePost(ctx context.Context, authorID int64, post PostNode, tags []string) (*PostNode, error) {
	now := s.now()
	created := post.CreatedAt
	if created.IsZero() {
		created = now
	}
	tags = normalizeTags(tags)

	query := `
		MATCH (u:UserNode {user_id: $author_id})
		MERGE (p:PostNode {post_id: $post_id})
		ON CREATE SET p.created_at = datetime($created_at)
		SET p.content = $content,
		    p.updated_at = datetime($updated_at)
		MERGE (u)-[:POSTED]->(p)
		RETURN p, u.user_id AS author_id
	`

	out, err := s.write(ctx, "create post", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{
			"author_id":  authorID,
			"post_id":    post.PostID,
			"content":    post.Content,
			"created_at": created.UTC().Format(time.RFC3339Nano),
			"updated_at": now.Format(time.RFC3339Nano),
		})
		if err != nil || record == nil {
			return nil, err
		}
		if err := replaceTags(ctx, tx, post.PostID, tags, now); err != nil {
			return nil, err
		}
		node := postFromRecord(record)
		return &node, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post %d: %w", post.PostID, err)
	}
	if out == nil {
		return nil, notFound(UserRef(authorID))
	}

	s.logger.Info("Post created",
		zap.Int64("post_id", post.PostID),
		zap.Int64("author_id", authorID),
		zap.Strings("tags", tags))
	return out.(*PostNode), nil
}

// UpdatePost replaces the content and the full TAGGED_WITH edge set in one transaction
func (s *Neo4jStore) UpdatePost(ctx context.Context, post PostNode, tags []string) (*PostNode, error) {
	now := s.now()
	tags = normalizeTags(tags)

	query := `
		MATCH (p:PostNode {post_id: $post_id})
		SET p.content = $content,
		    p.updated_at = datetime($updated_at)
		WITH p
		OPTIONAL MATCH (a:UserNode)-[:POSTED]->(p)
		RETURN p, a.user_id AS author_id
		LIMIT 1
	`

	out, err := s.write(ctx, "update post", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{
			"post_id":    post.PostID,
			"content":    post.Content,
			"updated_at": now.Format(time.RFC3339Nano),
		})
		if err != nil || record == nil {
			return nil, err
		}
		if err := replaceTags(ctx, tx, post.PostID, tags, now); err != nil {
			return nil, err
		}
		node := postFromRecord(record)
		return &node, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update post %d: %w", post.PostID, err)
	}
	if out == nil {
		return nil, notFound(PostRef(post.PostID))
	}

	s.logger.Info("Post updated", zap.Int64("post_id", post.PostID), zap.Strings("tags", tags))
	return out.(*PostNode), nil
}

// replaceTags drops every TAGGED_WITH edge of the post then connects the given tags
func replaceTags(ctx context.Context, tx neo4j.ManagedTransaction, postID int64, tags []string, now time.Time) error {
	drop := `
		MATCH (p:PostNode {post_id: $post_id})-[r:TAGGED_WITH]->(:InterestNode)
		DELETE r
	`
	if _, err := collect(ctx, tx, drop, map[string]any{"post_id": postID}); err != nil {
		return fmt.Errorf("failed to drop tag edges: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	connect := `
		MATCH (p:PostNode {post_id: $post_id})
		UNWIND $tags AS tag
		MERGE (i:InterestNode {name: tag})
		ON CREATE SET i.created_at = datetime($now), i.description = ''
		MERGE (p)-[:TAGGED_WITH]->(i)
	`
	if _, err := collect(ctx, tx, connect, map[string]any{
		"post_id": postID,
		"tags":    tags,
		"now":     now.Format(time.RFC3339Nano),
	}); err != nil {
		return fmt.Errorf("failed to connect tags: %w", err)
	}
	return nil
}

// GetPost returns the post node with its author id
func (s *Neo4jStore) GetPost(ctx context.Context, postID int64) (*PostNode, error) {
	query := `
		MATCH (p:PostNode {post_id: $post_id})
		OPTIONAL MATCH (a:UserNode)-[:POSTED]->(p)
		RETURN p, a.user_id AS author_id
		LIMIT 1
	`

	out, err := s.read(ctx, "get post", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"post_id": postID})
		if err != nil || record == nil {
			return nil, err
		}
		node := postFromRecord(record)
		return &node, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, notFound(PostRef(postID))
	}
	return out.(*PostNode), nil
}

// DeletePost removes the post node and all incident tag, like and comment edges
func (s *Neo4jStore) DeletePost(ctx context.Context, postID int64) (bool, error) {
	return s.detachDelete(ctx, PostRef(postID))
}

// PostTags lists the interests a post is tagged with, by name
func (s *Neo4jStore) PostTags(ctx context.Context, postID int64) ([]InterestNode, error) {
	query := `
		MATCH (:PostNode {post_id: $post_id})-[:TAGGED_WITH]->(i:InterestNode)
		RETURN DISTINCT i
		ORDER BY i.name ASC
	`

	out, err := s.read(ctx, "post tags", func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, map[string]any{"post_id": postID})
		if err != nil {
			return nil, err
		}
		return interestsFromRecords(records, "i"), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]InterestNode), nil
}

// ============================================================================
// Interest Operations
// ============================================================================

// UpsertInterest creates an interest by lower-cased name. A non-empty
// description overwrites the stored one.
func (s *Neo4jStore) UpsertInterest(ctx context.Context, name, description string) (*InterestNode, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("interest name is empty")
	}

	query := `
		MERGE (i:InterestNode {name: $name})
		ON CREATE SET i.created_at = datetime($now), i.description = $description
		ON MATCH SET i.description = CASE WHEN $description <> '' THEN $description ELSE i.description END
		RETURN i
	`

	out, err := s.write(ctx, "upsert interest", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{
			"name":        name,
			"description": description,
			"now":         s.now().Format(time.RFC3339Nano),
		})
		if err != nil || record == nil {
			return nil, err
		}
		node := interestFromProps(getPropsFromRecord(record, "i"))
		return &node, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert interest %q: %w", name, err)
	}
	node, ok := out.(*InterestNode)
	if !ok {
		return nil, fmt.Errorf("failed to upsert interest %q: no record returned", name)
	}
	return node, nil
}

// GetInterest returns the interest node by name
func (s *Neo4jStore) GetInterest(ctx context.Context, name string) (*InterestNode, error) {
	name = normalizeName(name)
	query := `MATCH (i:InterestNode {name: $name}) RETURN i`

	out, err := s.read(ctx, "get interest", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"name": name})
		if err != nil || record == nil {
			return nil, err
		}
		node := interestFromProps(getPropsFromRecord(record, "i"))
		return &node, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, notFound(InterestRef(name))
	}
	return out.(*InterestNode), nil
}
