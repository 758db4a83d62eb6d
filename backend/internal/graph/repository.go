package graph

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "socialblog/backend/pkg/errors"
	"socialblog/backend/pkg/logger"
)

const constraintViolationCode = "Neo.ClientError.Schema.ConstraintValidationFailed"

var _ Store = (*Neo4jStore)(nil)

// Neo4jStore is the production Store backed by a Neo4j database.
// The driver is opened once at startup and shared by every call.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
	now      func() time.Time
}

// NewNeo4jStore creates a store over an already connected driver
func NewNeo4jStore(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// schemaStatements are applied one at a time; Neo4j rejects multi-statement schema queries.
var schemaStatements = []struct {
	name  string
	query string
}{
	{"user_id_unique", `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:UserNode) REQUIRE u.user_id IS UNIQUE`},
	{"username_unique", `CREATE CONSTRAINT username_unique IF NOT EXISTS FOR (u:UserNode) REQUIRE u.username IS UNIQUE`},
	{"post_id_unique", `CREATE CONSTRAINT post_id_unique IF NOT EXISTS FOR (p:PostNode) REQUIRE p.post_id IS UNIQUE`},
	{"comment_id_unique", `CREATE CONSTRAINT comment_id_unique IF NOT EXISTS FOR (c:CommentNode) REQUIRE c.comment_id IS UNIQUE`},
	{"interest_name_unique", `CREATE CONSTRAINT interest_name_unique IF NOT EXISTS FOR (i:InterestNode) REQUIRE i.name IS UNIQUE`},
	{"post_created_at", `CREATE INDEX post_created_at IF NOT EXISTS FOR (p:PostNode) ON (p.created_at)`},
}

// EnsureSchema creates the unique constraints that make MERGE an atomic upsert
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt.query, nil)
		if err != nil {
			return s.classify("ensure schema "+stmt.name, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return s.classify("ensure schema "+stmt.name, err)
		}
		s.logger.Debug("Schema statement applied", zap.String("name", stmt.name))
	}

	s.logger.Info("Graph schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

// Clear removes every node this application owns
func (s *Neo4jStore) Clear(ctx context.Context) error {
	query := `
		MATCH (n)
		WHERE n:UserNode OR n:PostNode OR n:CommentNode OR n:InterestNode
		DETACH DELETE n
	`
	_, err := s.write(ctx, "clear", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return err
	}

	s.logger.Warn("Graph cleared")
	return nil
}

// ============================================================================
// Session Helpers
// ============================================================================

func (s *Neo4jStore) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// write runs work in a managed write transaction and classifies its error
func (s *Neo4jStore) write(ctx context.Context, op string, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, work)
	if err != nil {
		return nil, s.classify(op, err)
	}
	return out, nil
}

// read runs work in a managed read transaction and classifies its error
func (s *Neo4jStore) read(ctx context.Context, op string, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.newSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, work)
	if err != nil {
		return nil, s.classify(op, err)
	}
	return out, nil
}

// classify maps driver errors onto the graph error taxonomy
func (s *Neo4jStore) classify(op string, err error) error {
	if apperrors.IsErrorType(err, apperrors.ErrorTypeGraph) {
		return err
	}

	var neoErr *neo4j.Neo4jError
	if stderrors.As(err, &neoErr) && neoErr.Code == constraintViolationCode {
		return apperrors.NewGraphConstraint(op, neoErr.Msg, err)
	}

	if neo4j.IsConnectivityError(err) ||
		neo4j.IsTransactionExecutionLimit(err) ||
		stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewGraphUnavailable("neo4j", err)
	}

	return apperrors.NewGraphQueryFailed(op, err)
}

// collect runs a query inside tx and returns every record
func collect(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

// first runs a query inside tx and returns its first record, or nil
func first(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (*neo4j.Record, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		return nil, result.Err()
	}
	record := result.Record()
	if _, err := result.Consume(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// missingRef returns the first ref whose node does not exist, or nil
func missingRef(ctx context.Context, tx neo4j.ManagedTransaction, refs ...Ref) (*Ref, error) {
	for i := range refs {
		ref := refs[i]
		query := fmt.Sprintf(`MATCH (n:%s {%s: $key}) RETURN count(n) AS found`, ref.Kind, ref.Kind.keyProperty())
		record, err := first(ctx, tx, query, map[string]any{"key": ref.key()})
		if err != nil {
			return nil, err
		}
		if record == nil || getInt64FromRecord(record, "found") == 0 {
			return &ref, nil
		}
	}
	return nil, nil
}

// cypherLimit converts a non-positive limit into an effectively unbounded one
func cypherLimit(limit int) int64 {
	if limit <= 0 {
		return math.MaxInt32
	}
	return int64(limit)
}
