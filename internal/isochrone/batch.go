package isochrone

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/isochroner/internal/ledger"
	"github.com/sells-group/isochroner/internal/model"
	"github.com/sells-group/isochroner/pkg/routing"
)

// DefaultBatchSize is the number of records processed per chunk.
const DefaultBatchSize = 5

// BatchOptions controls a resumable batch run.
type BatchOptions struct {
	BuildOptions

	// BatchSize is the maximum records per chunk. <= 0 means
	// DefaultBatchSize.
	BatchSize int
}

// Run processes every pending input record through the routing service and
// appends the resulting rows to the ledger, one contiguous chunk at a time.
// An identifier already present in the ledger is done and skipped, so a
// rerun picks up exactly where the last run stopped. Any failure aborts the
// run; chunks appended before it stay durable, the failing chunk and
// everything after stay pending. Returns the number of rows appended.
func Run(ctx context.Context, client routing.Client, led ledger.Ledger, table model.Table, opts BatchOptions) (int, error) {
	opts.BuildOptions = opts.BuildOptions.withDefaults()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	logger := zap.L().With(zap.String("component", "isochrone.batch"))

	done, err := led.DoneIDs(ctx)
	if err != nil {
		return 0, err
	}
	pending, err := Pending(table.Records, opts.MatchingVar, done)
	if err != nil {
		return 0, err
	}
	logger.Info("batch resume state",
		zap.Int("input_records", len(table.Records)),
		zap.Int("done", len(done)),
		zap.Int("pending", len(pending)),
		zap.Int("batch_size", opts.BatchSize))

	appended := 0
	for start := 0; start < len(pending); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}

		rows, err := BuildTable(ctx, client, pending[start:end], opts.BuildOptions)
		if err != nil {
			return appended, eris.Wrapf(err, "isochrone: build chunk %d-%d", start, end)
		}
		if err := led.Append(ctx, rows); err != nil {
			return appended, eris.Wrapf(err, "isochrone: append chunk %d-%d", start, end)
		}
		appended += len(rows)
		logger.Info("chunk appended",
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("rows", len(rows)))
	}
	return appended, nil
}

// Pending returns the records whose identifier is not yet in the ledger,
// preserving input order. A duplicate identifier within the input is
// processed once.
func Pending(records []model.Record, matchingVar string, done map[int64]struct{}) ([]model.Record, error) {
	seen := make(map[int64]struct{}, len(records))
	var pending []model.Record
	for i, rec := range records {
		id, err := recordID(rec, matchingVar)
		if err != nil {
			return nil, eris.Wrapf(err, "isochrone: record %d", i)
		}
		if _, ok := done[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, rec)
	}
	return pending, nil
}
