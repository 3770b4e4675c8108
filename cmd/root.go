package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isochroner/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "isochroner",
	Short: "Batch isochrone builder for shapefile polygons",
	Long:  "Reads polygons from shapefiles, computes travel-time isochrones around their centroids via a routing service, and appends the results incrementally to a resumable output store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
