// Package mssql implements a Microsoft SQL Server repository on
// go-mssqldb. CopyFrom uses the bulk copy API; columns whose names contain
// "]" go through parameterized multi-row INSERTs instead, since bulk copy
// brackets column names without escaping them.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/wes-public-apps/protobuf-db/internal/ddl"
	"github.com/wes-public-apps/protobuf-db/internal/storage"
)

const (
	// maxParams stays under SQL Server's 2100 parameter limit.
	maxParams = 2000
	// maxValuesRows is the row limit of a table value constructor.
	maxValuesRows = 1000
)

// Dialect is SQL Server's DDL flavor. It has no CREATE TABLE IF NOT EXISTS,
// so the statement is guarded with OBJECT_ID.
var Dialect = ddl.Dialect{
	Name:     "mssql",
	Quote:    msIdent,
	TextType: "NVARCHAR(MAX)",
	MaxIdent: 128,
	Guard: func(quoted, _, create string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL %s", strings.ReplaceAll(quoted, "'", "''"), create)
	},
}

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
}

// Repository is an MSSQL-backed storage repository.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a Repository and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// CopyFrom loads rows into table inside one transaction.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	var n int64
	if bulkSafe(columns) {
		n, err = bulkCopy(ctx, tx, table, columns, rows)
	} else {
		n, err = insertRows(ctx, tx, table, columns, rows)
	}
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func bulkSafe(columns []string) bool {
	for _, c := range columns {
		if strings.Contains(c, "]") {
			return false
		}
	}
	return true
}

func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(Dialect.QuoteFQN(table), mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	chunks, err := storage.Chunk(rows, len(columns), maxParams, maxValuesRows)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, chunk := range chunks {
		q := storage.InsertSQL(table, Dialect, columns, len(chunk), placeholder)
		res, err := tx.ExecContext(ctx, q, storage.Flatten(chunk)...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// placeholder returns go-mssqldb's ordinal marker, @p1 for the first argument.
func placeholder(i int) string { return "@p" + strconv.Itoa(i+1) }

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Dialect returns the SQL Server DDL dialect.
func (r *Repository) Dialect() ddl.Dialect { return Dialect }

// msIdent quotes a SQL Server identifier with [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
