package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sells-group/isochroner/internal/model"
)

// SQLiteLedger stores rows in an embedded SQLite database in WAL mode. Each
// chunk is appended inside one transaction.
type SQLiteLedger struct {
	db     *sql.DB
	schema Schema
}

// NewSQLite opens a SQLite ledger at path, creating the database and output
// table if they do not exist.
func NewSQLite(ctx context.Context, path string, schema Schema) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open sqlite")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}

	l := &SQLiteLedger{db: db, schema: schema.withDefaults()}
	if _, err := db.ExecContext(ctx, l.createSQL()); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "ledger: create isochrones table")
	}
	return l, nil
}

// createSQL builds the output table DDL. seq preserves insertion order; the
// (identifier, duration) pair is unique.
func (l *SQLiteLedger) createSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS isochrones (\n")
	b.WriteString("\tseq INTEGER PRIMARY KEY,\n")
	fmt.Fprintf(&b, "\t%s INTEGER NOT NULL,\n", quoteIdent(l.schema.MatchingVar))
	for _, col := range l.schema.KeepCols {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", quoteIdent(col))
	}
	b.WriteString("\tcoords TEXT NOT NULL,\n")
	b.WriteString("\tduration INTEGER NOT NULL,\n")
	b.WriteString("\tgeometry TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "\tUNIQUE (%s, duration)\n)", quoteIdent(l.schema.MatchingVar))
	return b.String()
}

func (l *SQLiteLedger) insertSQL() string {
	cols := l.schema.columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO isochrones (%s) VALUES (%s)", quotedJoin(cols), placeholders)
}

func (l *SQLiteLedger) DoneIDs(ctx context.Context) (map[int64]struct{}, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM isochrones", quoteIdent(l.schema.MatchingVar))
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query done ids")
	}
	defer rows.Close() //nolint:errcheck

	done := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "ledger: scan done id")
		}
		done[id] = struct{}{}
	}
	return done, eris.Wrap(rows.Err(), "ledger: iterate done ids")
}

func (l *SQLiteLedger) Append(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "ledger: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, l.insertSQL())
	if err != nil {
		return eris.Wrap(err, "ledger: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, l.schema.rowArgs(row)...); err != nil {
			return eris.Wrapf(err, "ledger: insert row %d duration %d", row.ID, row.Duration)
		}
	}
	return eris.Wrap(tx.Commit(), "ledger: commit append")
}

func (l *SQLiteLedger) Rows(ctx context.Context) ([]model.Row, error) {
	rows, err := l.db.QueryContext(ctx, l.schema.selectSQL())
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query rows")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Row
	for rows.Next() {
		row, err := scanRow(rows, len(l.schema.KeepCols))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "ledger: iterate rows")
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
