package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isochroner/internal/isochrone"
	"github.com/sells-group/isochroner/internal/ledger"
	"github.com/sells-group/isochroner/internal/shapefile"
	"github.com/sells-group/isochroner/pkg/routing"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compute isochrones for every pending shapefile record",
	Long: `Reads polygons from a shapefile, computes one isochrone per record per
travel duration via the routing service, and appends the results to the
output store in small chunks. Identifiers already present in the output
are skipped, so an interrupted run can simply be started again.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shpPath, _ := cmd.Flags().GetString("shapefile")
		if shpPath == "" {
			shpPath = cfg.Batch.Shapefile
		}
		if shpPath == "" {
			return eris.New("batch: no shapefile given, pass --shapefile or set batch.shapefile")
		}

		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = cfg.Batch.OutFile
		}

		key, err := routingKey(cmd)
		if err != nil {
			return err
		}

		opts := batchOptions(cmd)
		opts.Key = key

		log := zap.L().With(
			zap.String("command", "batch"),
			zap.String("run_id", uuid.New().String()),
		)
		log.Info("starting batch run",
			zap.String("shapefile", shpPath),
			zap.String("out", outPath),
			zap.Ints("durations", opts.Durations),
			zap.Int("batch_size", opts.BatchSize),
		)

		encoding, _ := cmd.Flags().GetString("encoding")
		if encoding == "" {
			encoding = cfg.Batch.Encoding
		}

		table, err := shapefile.Load(shpPath, shapefile.Options{Encoding: encoding})
		if err != nil {
			return eris.Wrap(err, "batch: load shapefile")
		}

		led, err := ledger.Open(ctx, outPath, ledger.Schema{
			MatchingVar: opts.MatchingVar,
			KeepCols:    opts.KeepCols,
		})
		if err != nil {
			return eris.Wrap(err, "batch: open output store")
		}
		defer func() { _ = led.Close() }()

		appended, err := isochrone.Run(ctx, routingClient(), led, table, opts)
		if err != nil {
			return eris.Wrap(err, "batch")
		}

		fmt.Printf("Appended %d rows to %s\n", appended, outPath)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("shapefile", "", "input shapefile path (default: from config)")
	batchCmd.Flags().String("out", "", "output store: .csv path, .db/.sqlite path, or postgres:// DSN (default: from config)")
	batchCmd.Flags().String("key", "", "routing service access token (default: ISOCHRONER_ROUTING_KEY)")
	batchCmd.Flags().String("matching-var", "", "attribute column holding the record identifier (default: GEOID)")
	batchCmd.Flags().IntSlice("durations", nil, "travel durations in minutes (default: 15)")
	batchCmd.Flags().String("keep-cols", "", "comma-separated attribute columns to carry into the output")
	batchCmd.Flags().Int("batch-size", 0, "records per chunk (default: from config or 5)")
	batchCmd.Flags().Float64("std-devs", 0, "outlier cutoff in standard deviations (default: 2)")
	batchCmd.Flags().Float64("tolerance", 0, "boundary simplification tolerance (default: 2)")
	batchCmd.Flags().Bool("swap-xy", false, "write lng,lat coordinate order instead of lat,lng")
	batchCmd.Flags().String("encoding", "", "DBF attribute character set, e.g. latin1 (default: as-is)")
	rootCmd.AddCommand(batchCmd)
}

// batchOptions merges batch flags over config values.
func batchOptions(cmd *cobra.Command) isochrone.BatchOptions {
	opts := isochrone.BatchOptions{
		BuildOptions: isochrone.BuildOptions{
			Durations:   cfg.Batch.Durations,
			KeepCols:    cfg.Batch.KeepCols,
			MatchingVar: cfg.Batch.MatchingVar,
			StdDevs:     cfg.Batch.StdDevs,
			Tolerance:   cfg.Batch.Tolerance,
			SwapXY:      cfg.Batch.SwapXY,
		},
		BatchSize: cfg.Batch.BatchSize,
	}

	if cmd.Flags().Changed("durations") {
		opts.Durations, _ = cmd.Flags().GetIntSlice("durations")
	}
	if keepStr, _ := cmd.Flags().GetString("keep-cols"); keepStr != "" {
		opts.KeepCols = splitAndTrim(keepStr)
	}
	if matchingVar, _ := cmd.Flags().GetString("matching-var"); matchingVar != "" {
		opts.MatchingVar = matchingVar
	}
	if batchSize, _ := cmd.Flags().GetInt("batch-size"); batchSize > 0 {
		opts.BatchSize = batchSize
	}
	if stdDevs, _ := cmd.Flags().GetFloat64("std-devs"); stdDevs > 0 {
		opts.StdDevs = stdDevs
	}
	if tolerance, _ := cmd.Flags().GetFloat64("tolerance"); tolerance > 0 {
		opts.Tolerance = tolerance
	}
	if cmd.Flags().Changed("swap-xy") {
		opts.SwapXY, _ = cmd.Flags().GetBool("swap-xy")
	}

	return opts
}

// routingKey resolves the routing credential: --key flag first, then the
// routing.key config value (ISOCHRONER_ROUTING_KEY in the environment).
func routingKey(cmd *cobra.Command) (string, error) {
	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		key = cfg.Routing.Key
	}
	if key == "" {
		return "", eris.New("routing key not set, pass --key or set ISOCHRONER_ROUTING_KEY")
	}
	return key, nil
}

// routingClient builds the routing client from config.
func routingClient() routing.Client {
	var opts []routing.Option
	if cfg.Routing.Profile != "" {
		opts = append(opts, routing.WithProfile(cfg.Routing.Profile))
	}
	if cfg.Routing.TimeoutSecs > 0 {
		opts = append(opts, routing.WithTimeout(time.Duration(cfg.Routing.TimeoutSecs)*time.Second))
	}
	return routing.NewClient(opts...)
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
