// Package ledger persists isochrone output rows and tracks which input
// identifiers are already complete. The output store is the single source of
// truth for resume state: an identifier present in the ledger is done, one
// that is absent is pending. There is no in-progress state.
package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isochroner/internal/model"
)

// Schema describes the output row layout of a ledger.
type Schema struct {
	// MatchingVar is the identifier column name. Empty means
	// model.DefaultMatchingVar.
	MatchingVar string
	// KeepCols are the retained attribute columns, in output order. Any
	// occurrence of MatchingVar is dropped: the identifier always has its
	// own leading column.
	KeepCols []string
}

func (s Schema) withDefaults() Schema {
	if s.MatchingVar == "" {
		s.MatchingVar = model.DefaultMatchingVar
	}
	s.KeepCols = model.KeepColumns(s.MatchingVar, s.KeepCols)
	return s
}

// columns returns the full output column order: identifier, retained
// attributes, coords, duration, geometry.
func (s Schema) columns() []string {
	cols := make([]string, 0, len(s.KeepCols)+4)
	cols = append(cols, s.MatchingVar)
	cols = append(cols, s.KeepCols...)
	return append(cols, "coords", "duration", "geometry")
}

// rowArgs flattens a row into SQL arguments; order matches Schema.columns.
func (s Schema) rowArgs(row model.Row) []any {
	args := make([]any, 0, len(s.KeepCols)+4)
	args = append(args, row.ID)
	for i := range s.KeepCols {
		var v string
		if i < len(row.Attrs) {
			v = row.Attrs[i]
		}
		args = append(args, v)
	}
	return append(args, row.Coords, row.Duration, row.Geometry)
}

// selectSQL returns the query that reads all rows back in insertion order.
func (s Schema) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM isochrones ORDER BY seq", quotedJoin(s.columns()))
}

// Ledger is the persistent output store for isochrone rows.
type Ledger interface {
	// DoneIDs returns the identifiers already present in the store.
	DoneIDs(ctx context.Context) (map[int64]struct{}, error)

	// Append durably adds rows. A chunk appended in one call becomes
	// visible together or not at all.
	Append(ctx context.Context, rows []model.Row) error

	// Rows returns all stored rows in insertion order.
	Rows(ctx context.Context) ([]model.Row, error)

	Close() error
}

// Open selects a ledger backend from the path: a postgres:// or postgresql://
// DSN opens the Postgres ledger, a .db/.sqlite/.sqlite3 path the embedded
// SQLite ledger, anything else a CSV file. A missing store is created empty
// (header or bare table, no rows).
func Open(ctx context.Context, path string, schema Schema) (Ledger, error) {
	switch {
	case strings.HasPrefix(path, "postgres://"), strings.HasPrefix(path, "postgresql://"):
		return NewPostgres(ctx, path, schema)
	case isSQLitePath(path):
		return NewSQLite(ctx, path, schema)
	default:
		return NewCSV(path, schema)
	}
}

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// quoteIdent quotes a SQL identifier so configured column names cannot break
// generated DDL and queries.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quotedJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRow scans one output row; column order must match Schema.columns.
func scanRow(sc scannable, nkeep int) (model.Row, error) {
	var row model.Row
	attrs := make([]string, nkeep)

	dest := make([]any, 0, nkeep+4)
	dest = append(dest, &row.ID)
	for i := range attrs {
		dest = append(dest, &attrs[i])
	}
	dest = append(dest, &row.Coords, &row.Duration, &row.Geometry)

	if err := sc.Scan(dest...); err != nil {
		return model.Row{}, eris.Wrap(err, "ledger: scan row")
	}
	row.Attrs = attrs
	return row, nil
}
