package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isochroner/internal/convert"
	"github.com/sells-group/isochroner/internal/ledger"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Export stored isochrones as a shapefile or GeoJSON",
	Long: `Reads every row from an output store and writes the geometries to a
shapefile or GeoJSON file. The format is inferred from the output
extension unless --format is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inPath, _ := cmd.Flags().GetString("in")
		if inPath == "" {
			inPath = cfg.Batch.OutFile
		}
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			return eris.New("convert: no output path given, pass --out")
		}

		matchingVar, _ := cmd.Flags().GetString("matching-var")
		if matchingVar == "" {
			matchingVar = cfg.Batch.MatchingVar
		}
		keepCols := cfg.Batch.KeepCols
		if keepStr, _ := cmd.Flags().GetString("keep-cols"); keepStr != "" {
			keepCols = splitAndTrim(keepStr)
		}

		led, err := ledger.Open(ctx, inPath, ledger.Schema{
			MatchingVar: matchingVar,
			KeepCols:    keepCols,
		})
		if err != nil {
			return eris.Wrap(err, "convert: open input store")
		}
		defer func() { _ = led.Close() }()

		rows, err := led.Rows(ctx)
		if err != nil {
			return eris.Wrap(err, "convert: read rows")
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = cfg.Convert.Format
		}
		crs, _ := cmd.Flags().GetInt("crs")
		if crs == 0 {
			crs = cfg.Convert.CRS
		}

		if err := convert.Write(rows, outPath, convert.Options{Format: format, CRS: crs}); err != nil {
			return eris.Wrap(err, "convert")
		}

		fmt.Printf("Wrote %d features to %s\n", len(rows), outPath)
		return nil
	},
}

func init() {
	convertCmd.Flags().String("in", "", "input store: .csv path, .db/.sqlite path, or postgres:// DSN (default: from config)")
	convertCmd.Flags().String("out", "", "output file (.shp, .geojson, or .json)")
	convertCmd.Flags().String("format", "", "output format, shapefile or geojson (default: inferred from extension)")
	convertCmd.Flags().Int("crs", 0, "EPSG code for the GeoJSON crs member (default: 4326)")
	convertCmd.Flags().String("matching-var", "", "identifier column of the input store (default: GEOID)")
	convertCmd.Flags().String("keep-cols", "", "comma-separated attribute columns of the input store")
	rootCmd.AddCommand(convertCmd)
}
