package shapefile

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const ftpDialTimeout = 30 * time.Second

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, remotePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	remotePath = u.Path
	if remotePath == "" {
		return "", "", eris.New("empty path in ftp url")
	}
	return host, remotePath, nil
}

// downloadFTP retrieves an FTP URL to a local file with an anonymous login.
func downloadFTP(ctx context.Context, rawURL, dest string) error {
	host, remotePath, err := parseFTPURL(rawURL)
	if err != nil {
		return err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", remotePath))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(ftpDialTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "ftp dial")
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return eris.Wrap(err, "ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}
