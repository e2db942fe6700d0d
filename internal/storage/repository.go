// Package storage loads finalized tables into SQL databases.
//
// Backends register a Factory under a storage kind ("sqlite", "postgres",
// "mysql", "mssql") from their init functions; importing
// internal/storage/all makes every built-in kind available to New. The rest
// of the program only sees Repository and TableSink.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wes-public-apps/protobuf-db/internal/ddl"
)

// Repository is the backend-neutral database handle.
type Repository interface {
	// CopyFrom bulk-inserts rows into table (dotted FQN, unquoted) using
	// the backend's fastest path and reports how many rows were inserted.
	// Every row has len(columns) values.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Dialect describes identifier quoting and limits for DDL.
	Dialect() ddl.Dialect

	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
