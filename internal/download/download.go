// Package download fetches the Northwind sample CSV files over HTTP and
// validates the results on disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

const (
	// DefaultBaseURL is the Northwind dataset location.
	DefaultBaseURL = "https://data.neo4j.com/northwind/"
	// DefaultDataDir is where downloaded spreadsheets are stored.
	DefaultDataDir = "data/spreadsheets"
)

// DefaultFiles is the fixed set of files fetched from the dataset.
var DefaultFiles = []string{
	"orders.csv",
	"order-details.csv",
}

// ErrFileMissingOrEmpty is returned by Validate when an expected file is
// absent or has zero size after the download pass.
var ErrFileMissingOrEmpty = errors.New("download: file missing or empty")

// Client downloads a fixed list of files from a base URL into a destination
// directory. It performs no retries; the first transfer error aborts the run.
type Client struct {
	baseURL string
	dataDir string
	files   []string
	httpc   *http.Client
	log     *slog.Logger
}

// NewClient creates a Client. A nil httpc falls back to http.DefaultClient.
func NewClient(baseURL, dataDir string, files []string, httpc *http.Client, log *slog.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		dataDir: dataDir,
		files:   files,
		httpc:   httpc,
		log:     log,
	}
}

// Run ensures the data directory exists, downloads every file in order, and
// validates the results. Any download error aborts immediately.
func (c *Client) Run(ctx context.Context) error {
	if err := c.ensureDataDir(); err != nil {
		return err
	}
	for _, name := range c.files {
		if err := c.downloadFile(ctx, name); err != nil {
			return err
		}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.log.Info("all files downloaded and validated")
	return nil
}

// ensureDataDir creates the destination directory if it does not exist.
func (c *Client) ensureDataDir() error {
	if info, err := os.Stat(c.dataDir); err == nil && info.IsDir() {
		c.log.Info("data directory already exists", "path", c.dataDir)
		return nil
	}
	c.log.Info("creating data directory", "path", c.dataDir)
	if err := os.MkdirAll(c.dataDir, 0o750); err != nil {
		return fmt.Errorf("download: failed to create data directory %s: %w", c.dataDir, err)
	}
	return nil
}

// downloadFile streams one remote file to disk, truncating any existing copy.
func (c *Client) downloadFile(ctx context.Context, name string) error {
	fileURL, err := url.JoinPath(c.baseURL, name)
	if err != nil {
		return fmt.Errorf("download: invalid URL for %s: %w", name, err)
	}
	dest := filepath.Join(c.dataDir, name)
	c.log.Info("starting download", "url", fileURL, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("download: failed to build request for %s: %w", fileURL, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Error("download failed", "url", fileURL, "error", err)
		return fmt.Errorf("download: GET %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("download failed", "url", fileURL, "status", resp.StatusCode)
		return fmt.Errorf("download: GET %s: unexpected status %d", fileURL, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("download: failed to create %s: %w", dest, err)
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.log.Error("download failed", "url", fileURL, "error", err)
		return fmt.Errorf("download: failed to write %s: %w", dest, err)
	}

	c.log.Info("download complete", "file", dest, "size", written)
	return nil
}

// Validate checks that every expected file exists and is non-empty.
// A truncated or zero-byte file left by an interrupted transfer fails here.
func (c *Client) Validate() error {
	for _, name := range c.files {
		dest := filepath.Join(c.dataDir, name)
		info, err := os.Stat(dest)
		if err != nil || info.Size() == 0 {
			c.log.Error("file missing or empty", "file", dest)
			return fmt.Errorf("%w: %s", ErrFileMissingOrEmpty, dest)
		}
		c.log.Info("file validated", "file", dest, "size", info.Size())
	}
	return nil
}
