package shapefile

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Download fetches a zipped shapefile over http(s) or ftp, extracts it under
// destDir, and returns the path of the extracted .shp file. A zip that is
// already present with content is not downloaded again.
func Download(ctx context.Context, rawURL, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "shapefile.download"),
		zap.String("url", rawURL),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "shapefile: create dest dir")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "shapefile: parse url %s", rawURL)
	}
	zipName := path.Base(u.Path)
	if zipName == "." || zipName == "/" {
		return "", eris.Errorf("shapefile: no file name in url %s", rawURL)
	}
	zipPath := filepath.Join(destDir, zipName)

	if info, statErr := os.Stat(zipPath); statErr == nil && info.Size() > 0 {
		log.Debug("zip already exists, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading shapefile archive")
		switch u.Scheme {
		case "http", "https":
			err = downloadHTTP(ctx, rawURL, zipPath)
		case "ftp":
			err = downloadFTP(ctx, rawURL, zipPath)
		default:
			return "", eris.Errorf("shapefile: unsupported url scheme %q", u.Scheme)
		}
		if err != nil {
			return "", eris.Wrap(err, "shapefile: download archive")
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "shapefile: create extract dir")
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "shapefile: extract zip")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "shapefile: find .shp file")
	}
	return shpPath, nil
}

// downloadHTTP downloads a URL to a local file.
func downloadHTTP(ctx context.Context, rawURL, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractZIP extracts a ZIP archive to the destination directory, flattening
// entry paths.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}
	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
