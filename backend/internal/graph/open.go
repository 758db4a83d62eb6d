package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ConnectOptions selects and configures a graph backend
type ConnectOptions struct {
	Backend  string // neo4j, memory
	URI      string
	User     string
	Password string
	Database string
}

// Open connects to the configured backend and applies its schema. The
// returned store owns the driver; close it on shutdown.
func Open(ctx context.Context, opts ConnectOptions) (Store, error) {
	var store Store

	switch opts.Backend {
	case "memory":
		store = NewMemoryStore()

	case "neo4j":
		driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
		}
		store = NewNeo4jStore(driver, opts.Database)

	default:
		return nil, fmt.Errorf("unsupported graph backend: %s", opts.Backend)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return store, nil
}
