// Package downloader adapts the external media retrieval service: it fetches
// one share link's payload and lands it on disk, extracting gallery archives.
package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"creator_mirror/internal/domain"
)

type Config struct {
	APIURL  string
	SaveDir string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	saveDir    string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiURL:     cfg.APIURL,
		saveDir:    cfg.SaveDir,
		logger:     logger,
	}
}

// Fetch retrieves one item through the download API and writes it under
// saveDir/destFolder. A zip payload (gallery post) is extracted into a folder
// named after the item; anything else is written as a single video file.
func (c *Client) Fetch(ctx context.Context, shareURL, destFolder, filename, itemID string) error {
	dir := filepath.Join(c.saveDir, sanitizePath(destFolder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.DownloadError{ItemID: itemID, Err: err}
	}

	q := url.Values{}
	q.Set("url", shareURL)
	q.Set("prefix", "false")
	q.Set("with_watermark", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return &domain.DownloadError{ItemID: itemID, Err: err}
	}

	c.logger.Info("requesting download", "item_id", itemID, "share_url", shareURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.DownloadError{ItemID: itemID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &domain.DownloadError{ItemID: itemID, Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.DownloadError{ItemID: itemID, Err: err}
	}

	if isArchive(resp.Header) {
		target := filepath.Join(dir, sanitizeName(filename))
		if err := extractArchive(body, target); err != nil {
			return &domain.DownloadError{ItemID: itemID, Err: err}
		}
		c.logger.Info("extracted archive", "item_id", itemID, "dir", target)
		return nil
	}

	base := sanitizeName(filename)
	target := filepath.Join(dir, base+".mp4")
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", base, itemID))
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return &domain.DownloadError{ItemID: itemID, Err: err}
	}

	c.logger.Info("saved file", "item_id", itemID, "path", target)
	return nil
}

func isArchive(h http.Header) bool {
	if strings.Contains(h.Get("Content-Type"), "application/zip") {
		return true
	}
	return strings.Contains(strings.ToLower(h.Get("Content-Disposition")), ".zip")
}

func extractArchive(data []byte, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		name := sanitizeName(filepath.Base(f.Name))
		if name == "" || f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s in archive: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s in archive: %w", f.Name, err)
		}

		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

var illegalNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeName strips characters that are illegal in file names and bounds
// the length, since descriptions become file names.
func sanitizeName(name string) string {
	name = illegalNameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}
	return name
}

// sanitizePath sanitizes each segment separately so nested destination
// folders (subject folder + content-type bucket) keep their hierarchy.
func sanitizePath(p string) string {
	segments := strings.Split(filepath.ToSlash(p), "/")
	cleaned := segments[:0]
	for _, seg := range segments {
		if s := sanitizeName(seg); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return filepath.Join(cleaned...)
}
