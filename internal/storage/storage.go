// Package storage opens the key-value backend selected in configuration.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LeJamon/goLoRaRouter/internal/storage/database"
	"github.com/LeJamon/goLoRaRouter/internal/storage/database/leveldb"
	"github.com/LeJamon/goLoRaRouter/internal/storage/database/pebble"
	"github.com/LeJamon/goLoRaRouter/internal/storage/database/sqlite"
)

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
)

// Backends lists the supported backend names.
var Backends = []string{BackendPebble, BackendLevelDB, BackendSQLite, BackendMemory}

// IsValidBackend reports whether name is a supported backend.
func IsValidBackend(name string) bool {
	for _, b := range Backends {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

// Open opens the named backend rooted at path. For sqlite, path is a
// directory holding cache.sqlite.
func Open(ctx context.Context, backend, path string) (database.DB, error) {
	backend = strings.ToLower(backend)
	if backend == BackendMemory {
		return database.NewMemoryDB(), nil
	}
	if !IsValidBackend(backend) {
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
	if path == "" {
		return nil, fmt.Errorf("storage backend %s requires a path", backend)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	switch backend {
	case BackendPebble:
		return pebble.Open(path)
	case BackendLevelDB:
		return leveldb.Open(path)
	default:
		return sqlite.Open(ctx, filepath.Join(path, "cache.sqlite"))
	}
}
