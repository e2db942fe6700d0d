// Package mysql implements a MySQL-backed storage.Repository with
// go-sql-driver/mysql. CopyFrom issues multi-row INSERTs inside one
// transaction per batch.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/wes-public-apps/protobuf-db/internal/ddl"
	"github.com/wes-public-apps/protobuf-db/internal/storage"
)

// maxParams is MySQL's prepared statement placeholder limit.
const maxParams = 65535

// Dialect is MySQL's DDL flavor. LONGTEXT avoids TEXT's 64 KiB cap.
var Dialect = ddl.Dialect{
	Name:     "mysql",
	Quote:    func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
	TextType: "LONGTEXT",
	MaxIdent: 64,
}

// Config holds MySQL repository configuration.
type Config struct {
	// DSN in go-sql-driver form, e.g. "user:pass@tcp(host:3306)/db?charset=utf8mb4".
	DSN string
}

// Repository is a MySQL-backed storage repository.
type Repository struct {
	db *sql.DB
}

// NewRepository validates the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// CopyFrom inserts rows into table in chunks that respect the placeholder
// limit, committing once for the whole batch.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	chunks, err := storage.Chunk(rows, len(columns), maxParams, 0)
	if err != nil {
		return 0, fmt.Errorf("mysql: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	var inserted int64
	for _, chunk := range chunks {
		q := storage.InsertSQL(table, Dialect, columns, len(chunk), func(int) string { return "?" })
		res, err := tx.ExecContext(ctx, q, storage.Flatten(chunk)...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return inserted, nil
}

// Exec executes a statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// Dialect returns the MySQL DDL dialect.
func (r *Repository) Dialect() ddl.Dialect { return Dialect }
