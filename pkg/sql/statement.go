package sql

import (
	"fmt"
	"strings"
)

// Statement is a single SQL command with positional ($n) parameters.
// Values are always bound by the driver; the SQL text never contains row data.
type Statement struct {
	SQL  string
	Args []any
}

// String renders the statement with its arguments inlined as literals.
// The result is for logs and diagnostics only.
func (s Statement) String() string {
	return Render(s)
}

// InsertIgnore builds an insert that leaves an existing row untouched on conflict.
// With conflict columns the clause is "ON CONFLICT (cols) DO NOTHING"; without any
// it is the target-less form, which swallows violations of every unique constraint.
func InsertIgnore(table string, columns []string, values []any, conflictColumns ...string) Statement {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("sql: %d columns but %d values for %s", len(columns), len(values), table))
	}

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if len(conflictColumns) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(conflictColumns, ", "))
	}
	b.WriteString(" DO NOTHING")

	args := make([]any, len(values))
	copy(args, values)
	return Statement{SQL: b.String(), Args: args}
}

// SelectWhere builds "SELECT col FROM table WHERE keyColumn = $1".
func SelectWhere(table, column, keyColumn string, key any) Statement {
	return Statement{
		SQL:  fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", column, table, keyColumn),
		Args: []any{key},
	}
}
