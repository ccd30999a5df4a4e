package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ecommerce-dashboard/internal/metrics"
)

// ErrNotFound is returned when the local file is absent and no remote source is configured.
var ErrNotFound = errors.New("dataset file not found")

// Fetcher downloads the dataset from a fixed remote URL when the local copy is missing.
type Fetcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Ensure makes sure path exists, downloading it first if needed.
func (f *Fetcher) Ensure(ctx context.Context, path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if f == nil || f.url == "" {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	start := time.Now()
	f.logger.Info("dataset missing, downloading", "path", path, "url", f.url)

	err = f.download(ctx, path)
	metrics.RecordFetch(err)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", f.url, err)
	}

	f.logger.Info("dataset downloaded", "path", path, "duration", time.Since(start))
	return nil
}

func (f *Fetcher) download(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
