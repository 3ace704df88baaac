// Package images materializes extracted image references to local storage.
// Downloads are concurrent up to a fixed worker limit, and each item's
// failure is isolated from its siblings: a failed image is recorded with
// downloaded=false and the batch continues.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/harvest/extractor"
	"github.com/use-agent/harvest/fetch"
	"github.com/use-agent/harvest/models"
)

// Downloader fetches image bytes through the injected HTTP capability and
// writes them under a destination directory.
type Downloader struct {
	fetcher fetch.Fetcher
	dir     string
	workers int
}

// NewDownloader creates a Downloader. workers bounds concurrent fetches;
// values below 1 run sequentially.
func NewDownloader(fetcher fetch.Fetcher, dir string, workers int) *Downloader {
	if workers < 1 {
		workers = 1
	}
	return &Downloader{fetcher: fetcher, dir: dir, workers: workers}
}

// DownloadAll fetches every image and returns the updated records in input
// order. On success a record gets downloaded=true, its byte size and local
// path; on any failure (network, non-2xx, write) it keeps downloaded=false
// with the other fields intact. Filename collisions are not deduplicated:
// a later image with the same derived name overwrites the earlier one.
func (d *Downloader) DownloadAll(ctx context.Context, images []models.ImageRecord) []models.ImageRecord {
	if len(images) == 0 {
		return images
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		slog.Error("image destination unavailable, skipping downloads", "dir", d.dir, "error", err)
		return images
	}

	out := make([]models.ImageRecord, len(images))
	copy(out, images)

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i := range out {
		wg.Add(1)
		go func(rec *models.ImageRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := d.downloadOne(ctx, rec); err != nil {
				slog.Debug("image download failed", "src", rec.Src, "error", err)
				rec.Downloaded = false
			}
		}(&out[i])
	}

	wg.Wait()
	return out
}

func (d *Downloader) downloadOne(ctx context.Context, rec *models.ImageRecord) error {
	res, err := d.fetcher.Fetch(ctx, rec.Src)
	if err != nil {
		return err
	}
	if res.Status < 200 || res.Status >= 300 {
		return fmt.Errorf("status %d", res.Status)
	}

	name := Filename(rec.Src, rec.Format)
	dest := filepath.Join(d.dir, name)
	if err := os.WriteFile(dest, res.Body, 0o644); err != nil {
		return err
	}

	rec.Downloaded = true
	rec.Size = len(res.Body)
	rec.LocalPath = dest
	return nil
}

// Filename derives a local filename from the image URL: the last path
// segment, with the detected format appended when the segment lacks an
// extension, falling back to a timestamp-qualified default when the URL
// yields nothing usable.
func Filename(src, format string) string {
	fallbackExt := format
	if fallbackExt == "" {
		fallbackExt = "img"
	}

	u, err := url.Parse(src)
	if err != nil {
		return fmt.Sprintf("image_%d.%s", time.Now().UnixNano(), fallbackExt)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return fmt.Sprintf("image_%d.%s", time.Now().UnixNano(), fallbackExt)
	}

	if !strings.Contains(name, ".") {
		if format == "" {
			format = extractor.ImageFormat(src)
		}
		if format == "" {
			format = "img"
		}
		name = name + "." + format
	}
	return name
}
