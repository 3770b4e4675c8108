package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/isochroner/internal/db"
	"github.com/sells-group/isochroner/internal/model"
)

// PostgresLedger stores rows in a Postgres table. Each chunk is appended with
// a single COPY statement, so it lands atomically.
type PostgresLedger struct {
	pool    db.Pool
	schema  Schema
	closeFn func()
}

// NewPostgres connects to Postgres with the given DSN and ensures the output
// table exists.
func NewPostgres(ctx context.Context, connString string, schema Schema) (*PostgresLedger, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse postgres config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ledger: ping postgres")
	}

	l := &PostgresLedger{pool: pool, schema: schema.withDefaults(), closeFn: pool.Close}
	if err := l.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, l.createSQL())
	return eris.Wrap(err, "ledger: create isochrones table")
}

func (l *PostgresLedger) createSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS isochrones (\n")
	b.WriteString("\tseq BIGSERIAL PRIMARY KEY,\n")
	fmt.Fprintf(&b, "\t%s BIGINT NOT NULL,\n", quoteIdent(l.schema.MatchingVar))
	for _, col := range l.schema.KeepCols {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", quoteIdent(col))
	}
	b.WriteString("\tcoords TEXT NOT NULL,\n")
	b.WriteString("\tduration INTEGER NOT NULL,\n")
	b.WriteString("\tgeometry TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "\tUNIQUE (%s, duration)\n)", quoteIdent(l.schema.MatchingVar))
	return b.String()
}

func (l *PostgresLedger) DoneIDs(ctx context.Context) (map[int64]struct{}, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM isochrones", quoteIdent(l.schema.MatchingVar))
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query done ids")
	}
	defer rows.Close()

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

func (l *PostgresLedger) Append(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	copyRows := make([][]any, len(rows))
	for i, row := range rows {
		copyRows[i] = l.schema.rowArgs(row)
	}
	_, err := db.CopyFrom(ctx, l.pool, "isochrones", l.schema.columns(), copyRows)
	return err
}

func (l *PostgresLedger) Rows(ctx context.Context) ([]model.Row, error) {
	rows, err := l.pool.Query(ctx, l.schema.selectSQL())
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query rows")
	}
	defer rows.Close()

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

func (l *PostgresLedger) Close() error {
	if l.closeFn != nil {
		l.closeFn()
	}
	return nil
}
