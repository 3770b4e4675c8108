package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isochroner/internal/model"
)

// CSVLedger stores rows in a header-prefixed CSV file. Creation writes the
// header to a temp file and renames it into place; each chunk is appended
// with a single O_APPEND write followed by fsync.
type CSVLedger struct {
	path   string
	schema Schema
}

// NewCSV opens a CSV ledger at path, creating the file with a header row if
// it does not exist. An existing file must carry the exact header the schema
// produces.
func NewCSV(path string, schema Schema) (*CSVLedger, error) {
	l := &CSVLedger{path: path, schema: schema.withDefaults()}
	if err := l.ensureFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *CSVLedger) ensureFile() error {
	info, err := os.Stat(l.path)
	switch {
	case err == nil:
		if info.IsDir() {
			return eris.Errorf("ledger: %s is a directory", l.path)
		}
		return l.validateHeader()
	case !os.IsNotExist(err):
		return eris.Wrapf(err, "ledger: stat %s", l.path)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "ledger: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "ledger: create temp file")
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(l.schema.columns()); err != nil {
		return eris.Wrap(err, "ledger: write header")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ledger: write header")
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrap(err, "ledger: sync header")
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return eris.Wrapf(err, "ledger: create %s", l.path)
	}
	return nil
}

// validateHeader checks an existing file's header against the schema so a
// resume cannot append rows under a different column layout.
func (l *CSVLedger) validateHeader() error {
	f, err := os.Open(l.path)
	if err != nil {
		return eris.Wrapf(err, "ledger: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return eris.Errorf("ledger: %s has no header row", l.path)
	}
	if err != nil {
		return eris.Wrapf(err, "ledger: read %s header", l.path)
	}

	want := l.schema.columns()
	if len(header) != len(want) {
		return eris.Errorf("ledger: %s header has %d columns, want %d (%s)",
			l.path, len(header), len(want), strings.Join(want, ","))
	}
	for i := range want {
		if header[i] != want[i] {
			return eris.Errorf("ledger: %s header column %d is %q, want %q",
				l.path, i, header[i], want[i])
		}
	}
	return nil
}

func (l *CSVLedger) DoneIDs(_ context.Context) (map[int64]struct{}, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, eris.Wrapf(err, "ledger: read %s header", l.path)
	}

	done := make(map[int64]struct{})
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: read %s", l.path)
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: parse id %q in %s", rec[0], l.path)
		}
		done[id] = struct{}{}
	}
	return done, nil
}

// Append encodes the chunk into one buffer and lands it on disk with a
// single append write and fsync.
func (l *CSVLedger) Append(_ context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(l.schema.encodeCSV(row)); err != nil {
			return eris.Wrap(err, "ledger: encode row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ledger: encode chunk")
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrapf(err, "ledger: open %s for append", l.path)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "ledger: append to %s", l.path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "ledger: sync %s", l.path)
	}
	return eris.Wrapf(f.Close(), "ledger: close %s", l.path)
}

func (l *CSVLedger) Rows(_ context.Context) ([]model.Row, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, eris.Wrapf(err, "ledger: read %s header", l.path)
	}

	var rows []model.Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: read %s", l.path)
		}
		row, err := l.schema.decodeCSV(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *CSVLedger) Close() error { return nil }

// encodeCSV renders a row in Schema.columns order.
func (s Schema) encodeCSV(row model.Row) []string {
	rec := make([]string, 0, len(s.KeepCols)+4)
	rec = append(rec, strconv.FormatInt(row.ID, 10))
	for i := range s.KeepCols {
		var v string
		if i < len(row.Attrs) {
			v = row.Attrs[i]
		}
		rec = append(rec, v)
	}
	return append(rec, row.Coords, strconv.Itoa(row.Duration), row.Geometry)
}

func (s Schema) decodeCSV(rec []string) (model.Row, error) {
	k := len(s.KeepCols)
	if len(rec) != k+4 {
		return model.Row{}, eris.Errorf("ledger: row has %d columns, want %d", len(rec), k+4)
	}
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return model.Row{}, eris.Wrapf(err, "ledger: parse id %q", rec[0])
	}
	duration, err := strconv.Atoi(rec[k+2])
	if err != nil {
		return model.Row{}, eris.Wrapf(err, "ledger: parse duration %q", rec[k+2])
	}
	return model.Row{
		ID:       id,
		Attrs:    append([]string(nil), rec[1:1+k]...),
		Coords:   rec[k+1],
		Duration: duration,
		Geometry: rec[k+3],
	}, nil
}
