package ddl

import (
	"strconv"
	"strings"
	"testing"
)

var ansi = Dialect{Name: "ansi", Quote: DoubleQuote, TextType: "TEXT"}

var brackets = Dialect{
	Name:     "brackets",
	Quote:    func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
	TextType: "NVARCHAR(MAX)",
	Guard: func(quoted, raw, create string) string {
		return "IF OBJECT_ID(N'" + raw + "', N'U') IS NULL " + create
	},
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		dialect     Dialect
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			dialect:     ansi,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			dialect:     ansi,
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " ", SQLType: "INT"}}},
			dialect:     ansi,
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			dialect:     ansi,
			errContains: "missing SQLType",
		},
		{
			name: "duplicate column returns error",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "a", SQLType: "TEXT"}, {Name: "a", SQLType: "TEXT"},
			}},
			dialect:     ansi,
			errContains: "duplicate column a",
		},
		{
			name:        "dialect without quoting returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}},
			dialect:     Dialect{Name: "broken"},
			errContains: "has no quoting",
		},
		{
			name: "flattened paths are quoted",
			def: TextTable("public.common_RawMsg", []string{
				"n", `m["k"]`, "inner.xs[0]",
			}, ansi),
			dialect: ansi,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"public\".\"common_RawMsg\" (\n" +
				"  \"n\" TEXT,\n  \"m[\"\"k\"\"]\" TEXT,\n  \"inner.xs[0]\" TEXT\n);",
		},
		{
			name: "primary key and default",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "id", SQLType: "INT", Nullable: true, PrimaryKey: true},
				{Name: "seen", SQLType: "TEXT", Default: "'x'"},
			}},
			dialect: ansi,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"t\" (\n" +
				"  \"id\" INT NOT NULL,\n  \"seen\" TEXT NOT NULL DEFAULT 'x',\n  PRIMARY KEY (\"id\")\n);",
		},
		{
			name:    "guarded dialect",
			def:     TextTable("dbo.k", []string{"a]b"}, brackets),
			dialect: brackets,
			wantSQL: "IF OBJECT_ID(N'dbo.k', N'U') IS NULL CREATE TABLE [dbo].[k] (\n  [a]]b] NVARCHAR(MAX)\n);",
		},
		{
			name: "whitespace in names and FQN is trimmed",
			def: TableDef{FQN: "  s . t ", Columns: []ColumnDef{
				{Name: "  c  ", SQLType: "  INT  ", Nullable: true},
			}},
			dialect: ansi,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"s\".\"t\" (\n  \"c\" INT\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def, tt.dialect)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.wantSQL)
			}
		})
	}
}

var benchmarkSink string

// BenchmarkBuildCreateTableSQL_Wide simulates a deeply nested kind with
// several hundred flattened columns.
func BenchmarkBuildCreateTableSQL_Wide(b *testing.B) {
	paths := make([]string, 0, 512)
	for i := 0; i < 512; i++ {
		paths = append(paths, "outer.inner.values["+strconv.Itoa(i)+"]")
	}
	def := TextTable("wide", paths, ansi)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def, ansi)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
