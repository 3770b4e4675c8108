package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isochroner/internal/shapefile"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract a zipped shapefile",
	Long: `Downloads a zipped shapefile over HTTP(S) or FTP, extracts it, and prints
the path of the .shp file inside. Already-downloaded archives are reused.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rawURL, _ := cmd.Flags().GetString("url")
		if rawURL == "" {
			return eris.New("fetch: no url given, pass --url")
		}

		dest, _ := cmd.Flags().GetString("dest")
		if dest == "" {
			dest = cfg.Fetch.TempDir
		}

		shpPath, err := shapefile.Download(ctx, rawURL, dest)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("url", "", "http(s) or ftp URL of a zipped shapefile")
	fetchCmd.Flags().String("dest", "", "destination directory (default: from config)")
	rootCmd.AddCommand(fetchCmd)
}
