// Package ddl models the tables flattened kinds are loaded into and renders
// CREATE TABLE statements for each supported SQL dialect.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement for t in
// dialect d.
//
// A column is rendered as
//
//	<quoted name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// Primary-key columns are always NOT NULL and are collected into a trailing
// PRIMARY KEY clause in declaration order. Default is emitted as raw SQL.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if d.Quote == nil {
		return "", fmt.Errorf("ddl: dialect %q has no quoting", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if _, dup := seen[name]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", name, fqn)
		}
		seen[name] = struct{}{}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	body := fmt.Sprintf("(\n  %s\n)", strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		return d.Guard(quoted, fqn, "CREATE TABLE "+quoted+" "+body+";"), nil
	}
	return "CREATE TABLE IF NOT EXISTS " + quoted + " " + body + ";", nil
}

// TextTable builds a TableDef with one nullable column of d.TextType per
// name, in order.
func TextTable(fqn string, names []string, d Dialect) TableDef {
	cols := make([]ColumnDef, len(names))
	for i, n := range names {
		cols[i] = ColumnDef{Name: n, SQLType: d.TextType, Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: cols}
}
