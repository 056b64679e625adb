// Package credstore persists session credentials across process restarts.
// Backends: a JSON file (default), SQLite or PostgreSQL through bun, and memory.
package credstore

import (
	"context"
	"io"
	"strings"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// Backend identifies a credential store implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// DetectBackend determines the backend from a DSN string.
func DetectBackend(dsn string) Backend {
	switch {
	case dsn == "", strings.HasSuffix(dsn, ".json"):
		return BackendFile
	case dsn == "memory:":
		return BackendMemory
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return BackendPostgres
	default:
		// file:, :memory:, or a plain database path
		return BackendSQLite
	}
}

// Open returns the credential store for dsn. The returned closer releases
// database handles and is a no-op for file and memory stores.
func Open(ctx context.Context, dsn string) (sdk.CredentialStore, io.Closer, error) {
	switch DetectBackend(dsn) {
	case BackendMemory:
		return NewMemoryStore(nil), nopCloser{}, nil
	case BackendPostgres:
		store, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case BackendSQLite:
		store, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		store, err := NewFileStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
