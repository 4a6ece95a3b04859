package landing

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DownloadZip fetches a bulk certificate zip from the register into dir,
// authenticating with basic auth when credentials are given. Returns the
// path of the downloaded file.
func DownloadZip(ctx context.Context, rawURL, dir, filename, username, password string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", rawURL, resp.Status)
	}

	dest := filepath.Join(dir, filename)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	return dest, f.Close()
}

// ExtractColumnsCSV pulls the columns.csv manifest out of a bulk zip and
// writes it next to destPath. The manifest drives schema generation.
func ExtractColumnsCSV(zipPath, destPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "columns.csv" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("reading columns.csv from %s: %w", zipPath, err)
		}
		defer rc.Close()

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		out, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer out.Close()

		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("writing %s: %w", destPath, err)
		}
		return out.Close()
	}
	return fmt.Errorf("no columns.csv in %s", zipPath)
}
