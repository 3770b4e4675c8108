package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isochroner/internal/isochrone"
	"github.com/sells-group/isochroner/internal/ledger"
	"github.com/sells-group/isochroner/internal/shapefile"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show done and pending counts for an output store",
	Long: `Prints how many identifiers the output store already holds. With
--shapefile it also diffs the store against the input and reports how
many records a batch run would still process.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = cfg.Batch.OutFile
		}
		matchingVar, _ := cmd.Flags().GetString("matching-var")
		if matchingVar == "" {
			matchingVar = cfg.Batch.MatchingVar
		}

		led, err := ledger.Open(ctx, outPath, ledger.Schema{
			MatchingVar: matchingVar,
			KeepCols:    cfg.Batch.KeepCols,
		})
		if err != nil {
			return eris.Wrap(err, "status: open output store")
		}
		defer func() { _ = led.Close() }()

		done, err := led.DoneIDs(ctx)
		if err != nil {
			return eris.Wrap(err, "status: read done ids")
		}

		fmt.Printf("%-10s %s\n", "Output", outPath)
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("%-10s %d\n", "Done", len(done))

		shpPath, _ := cmd.Flags().GetString("shapefile")
		if shpPath == "" {
			shpPath = cfg.Batch.Shapefile
		}
		if shpPath == "" {
			return nil
		}

		encoding, _ := cmd.Flags().GetString("encoding")
		if encoding == "" {
			encoding = cfg.Batch.Encoding
		}
		table, err := shapefile.Load(shpPath, shapefile.Options{Encoding: encoding})
		if err != nil {
			return eris.Wrap(err, "status: load shapefile")
		}

		pending, err := isochrone.Pending(table.Records, matchingVar, done)
		if err != nil {
			return eris.Wrap(err, "status: diff input against store")
		}

		fmt.Printf("%-10s %d\n", "Input", len(table.Records))
		fmt.Printf("%-10s %d\n", "Pending", len(pending))
		return nil
	},
}

func init() {
	statusCmd.Flags().String("out", "", "output store: .csv path, .db/.sqlite path, or postgres:// DSN (default: from config)")
	statusCmd.Flags().String("shapefile", "", "input shapefile to diff against (default: from config)")
	statusCmd.Flags().String("matching-var", "", "attribute column holding the record identifier (default: GEOID)")
	statusCmd.Flags().String("encoding", "", "DBF attribute character set (default: as-is)")
	rootCmd.AddCommand(statusCmd)
}
