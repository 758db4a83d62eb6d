package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "socialblog/backend/pkg/errors"
)

// ============================================================================
// User Operations
// ============================================================================

// UpsertUser creates the user node or overwrites its mutable fields.
// A unique violation from a concurrent creator is retried once, at which
// point MERGE matches the winner's node and updates it. A username held by a
// different user node is not retried.
func (s *Neo4jStore) UpsertUser(ctx context.Context, user UserNode) (*UserNode, error) {
	joined := user.DateJoined
	if joined.IsZero() {
		joined = s.now()
	}

	query := `
		MERGE (u:UserNode {user_id: $user_id})
		ON CREATE SET u.date_joined = datetime($date_joined)
		SET u.username = $username,
		    u.email = $email,
		    u.first_name = $first_name,
		    u.last_name = $last_name,
		    u.bio = $bio
		RETURN u
	`
	params := map[string]any{
		"user_id":     user.UserID,
		"username":    user.Username,
		"email":       user.Email,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"bio":         user.Bio,
		"date_joined": joined.UTC().Format(time.RFC3339Nano),
	}
	work := func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, params)
		if err != nil || record == nil {
			return nil, err
		}
		node := userFromProps(getPropsFromRecord(record, "u"))
		return &node, nil
	}

	out, err := s.write(ctx, "upsert user", work)
	if IsConstraint(err) {
		if holder, lookupErr := s.GetUserByUsername(ctx, user.Username); lookupErr == nil && holder.UserID != user.UserID {
			s.logger.Warn("Username held by another graph user, run backfill with -clear to repair",
				zap.Int64("user_id", user.UserID),
				zap.String("username", user.Username),
				zap.Int64("holder_user_id", holder.UserID))
			return nil, fmt.Errorf("failed to upsert user %d: username %q held by user %d: %w",
				user.UserID, user.Username, holder.UserID, err)
		}
		s.logger.Debug("User upsert hit unique constraint, retrying as update",
			zap.Int64("user_id", user.UserID))
		out, err = s.write(ctx, "upsert user", work)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %d: %w", user.UserID, err)
	}

	node, ok := out.(*UserNode)
	if !ok {
		return nil, fmt.Errorf("failed to upsert user %d: no record returned", user.UserID)
	}
	s.logger.Debug("User upserted", zap.Int64("user_id", node.UserID), zap.String("username", node.Username))
	return node, nil
}

// GetUser returns the user node or an ErrGraphNotFound
func (s *Neo4jStore) GetUser(ctx context.Context, userID int64) (*UserNode, error) {
	return s.getUserBy(ctx, "user_id", userID)
}

// GetUserByUsername looks a user up by its unique username
func (s *Neo4jStore) GetUserByUsername(ctx context.Context, username string) (*UserNode, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Neo4jStore) getUserBy(ctx context.Context, property string, value any) (*UserNode, error) {
	query := fmt.Sprintf(`MATCH (u:UserNode {%s: $value}) RETURN u LIMIT 1`, property)

	out, err := s.read(ctx, "get user", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"value": value})
		if err != nil || record == nil {
			return nil, err
		}
		node := userFromProps(getPropsFromRecord(record, "u"))
		return &node, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, apperrors.NewGraphNotFound(string(KindUser), fmt.Sprint(value))
	}
	return out.(*UserNode), nil
}

// DeleteUser removes the user node with all incident edges
func (s *Neo4jStore) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	return s.detachDelete(ctx, UserRef(userID))
}

// detachDelete removes a node and its edges, reporting whether it existed
func (s *Neo4jStore) detachDelete(ctx context.Context, ref Ref) (bool, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {%s: $key})
		WITH n, n.%s AS key
		DETACH DELETE n
		RETURN count(key) AS deleted
	`, ref.Kind, ref.Kind.keyProperty(), ref.Kind.keyProperty())

	out, err := s.write(ctx, "delete "+string(ref.Kind), func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"key": ref.key()})
		if err != nil || record == nil {
			return false, err
		}
		return getInt64FromRecord(record, "deleted") > 0, nil
	})
	if err != nil {
		return false, err
	}

	deleted := out.(bool)
	if deleted {
		s.logger.Info("Node deleted", zap.String("node", ref.String()))
	}
	return deleted, nil
}
