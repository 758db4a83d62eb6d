package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// endpointMatch builds the MATCH clause binding a and b to the edge's endpoints.
// Labels, key properties and rel types come from closed enums, never from input.
func endpointMatch(edge Edge) string {
	return fmt.Sprintf("MATCH (a:%s {%s: $from}), (b:%s {%s: $to})",
		edge.From.Kind, edge.From.Kind.keyProperty(),
		edge.To.Kind, edge.To.Kind.keyProperty())
}

func edgeParams(edge Edge) map[string]any {
	return map[string]any{"from": edge.From.key(), "to": edge.To.key()}
}

// Connect merges the edge. Returns false when either endpoint is missing.
func (s *Neo4jStore) Connect(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		%s
		MERGE (a)-[:%s]->(b)
		RETURN count(*) AS matched
	`, endpointMatch(edge), edge.Rel)

	return s.matchedWrite(ctx, "connect "+string(edge.Rel), query, edgeParams(edge), edge)
}

// Disconnect removes the edge if present. Returns false only when an endpoint is missing.
func (s *Neo4jStore) Disconnect(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		%s
		OPTIONAL MATCH (a)-[r:%s]->(b)
		DELETE r
		RETURN count(*) AS matched
	`, endpointMatch(edge), edge.Rel)

	return s.matchedWrite(ctx, "disconnect "+string(edge.Rel), query, edgeParams(edge), edge)
}

// ConnectPair merges a->b and b->a in a single write
func (s *Neo4jStore) ConnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error) {
	edge := Edge{From: UserRef(a), Rel: rel, To: UserRef(b)}
	if err := validateEdge(edge); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		%s
		MERGE (a)-[:%s]->(b)
		MERGE (b)-[:%s]->(a)
		RETURN count(*) AS matched
	`, endpointMatch(edge), rel, rel)

	return s.matchedWrite(ctx, "connect pair "+string(rel), query, edgeParams(edge), edge)
}

// DisconnectPair removes both directions in a single write
func (s *Neo4jStore) DisconnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error) {
	edge := Edge{From: UserRef(a), Rel: rel, To: UserRef(b)}
	if err := validateEdge(edge); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		%s
		OPTIONAL MATCH (a)-[r:%s]-(b)
		DELETE r
		RETURN count(*) AS matched
	`, endpointMatch(edge), rel)

	return s.matchedWrite(ctx, "disconnect pair "+string(rel), query, edgeParams(edge), edge)
}

func (s *Neo4jStore) matchedWrite(ctx context.Context, op, query string, params map[string]any, edge Edge) (bool, error) {
	out, err := s.write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, params)
		if err != nil || record == nil {
			return false, err
		}
		return getInt64FromRecord(record, "matched") > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	matched := out.(bool)
	if matched {
		s.logger.Debug("Edge written",
			zap.String("op", op),
			zap.String("from", edge.From.String()),
			zap.String("to", edge.To.String()))
	}
	return matched, nil
}

// HasEdge reports whether the directed edge exists
func (s *Neo4jStore) HasEdge(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		%s
		RETURN EXISTS { MATCH (a)-[:%s]->(b) } AS present
	`, endpointMatch(edge), edge.Rel)

	out, err := s.read(ctx, "has edge", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, edgeParams(edge))
		if err != nil || record == nil {
			return false, err
		}
		return getBoolFromRecord(record, "present"), nil
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// Neighbors lists the users on the other end of a user-to-user relation, by id
func (s *Neo4jStore) Neighbors(ctx context.Context, userID int64, rel RelType, dir Direction) ([]UserNode, error) {
	if err := validateEdge(Edge{From: UserRef(userID), Rel: rel, To: UserRef(0)}); err != nil {
		return nil, err
	}

	pattern := "(u)-[:%s]->(n:UserNode)"
	if dir == Incoming {
		pattern = "(u)<-[:%s]-(n:UserNode)"
	}
	query := fmt.Sprintf(`
		MATCH (u:UserNode {user_id: $user_id})
		MATCH `+pattern+`
		RETURN DISTINCT n
		ORDER BY n.user_id ASC
	`, rel)

	out, err := s.read(ctx, "neighbors "+string(rel), func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, map[string]any{"user_id": userID})
		if err != nil {
			return nil, err
		}
		return usersFromRecords(records, "n"), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]UserNode), nil
}
