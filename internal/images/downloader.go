// Package images downloads product pictures into the local images directory.
package images

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xelth-com/catalogbot/internal/models"
)

var (
	ErrNotImage = errors.New("content is not an image")
	ErrTooLarge = errors.New("image exceeds size limit")
)

// IsExternal reports whether url points to a remote resource rather than a
// local file name.
func IsExternal(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//")
}

// Failure records one URL that could not be saved
type Failure struct {
	URL string
	Err error
}

// Downloader fetches images one after another and stores them as
// <uuid><ext> under Dir.
type Downloader struct {
	Dir      string
	MaxBytes int64
	client   *http.Client
	logger   *slog.Logger
}

// NewDownloader creates a downloader writing into dir
func NewDownloader(dir string, maxBytes int64, timeout time.Duration, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	client := NewHTTPClient(nil)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Downloader{Dir: dir, MaxBytes: maxBytes, client: client, logger: logger}
}

// WithClient replaces the HTTP client (tests)
func (d *Downloader) WithClient(c *http.Client) *Downloader {
	d.client = c
	return d
}

// Download saves every URL it can. Failed URLs are logged and skipped. When
// several URLs were requested and all failed, an error listing the failures
// is returned; a single failed URL yields an empty result and no error.
func (d *Downloader) Download(ctx context.Context, urls []string) ([]models.ImageMetadata, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	saved := make([]models.ImageMetadata, 0, len(urls))
	var failures []Failure
	for _, u := range urls {
		meta, err := d.fetch(ctx, u)
		if err != nil {
			d.logger.Warn("image download failed", "url", u, "error", err)
			failures = append(failures, Failure{URL: u, Err: err})
			continue
		}
		saved = append(saved, meta)
	}

	if len(saved) == 0 && len(urls) > 1 {
		return nil, allFailed(failures)
	}
	if len(failures) > 0 {
		d.logger.Info("image batch partially saved", "saved", len(saved), "failed", len(failures))
	}
	return saved, nil
}

func allFailed(failures []Failure) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.URL, f.Err))
	}
	return fmt.Errorf("all %d image downloads failed: %w", len(failures), errors.Join(errs...))
}

func (d *Downloader) fetch(ctx context.Context, url string) (models.ImageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := DoWithRetry(d.client, req, 2)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ImageMetadata{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "image/") {
		return models.ImageMetadata{}, fmt.Errorf("%w: %q", ErrNotImage, mediaType)
	}
	if d.MaxBytes > 0 && resp.ContentLength > d.MaxBytes {
		return models.ImageMetadata{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := ReadBody(resp, d.MaxBytes)
	if err != nil {
		return models.ImageMetadata{}, err
	}

	sum := sha256.Sum256(data)
	name := uuid.NewString() + extension(mediaType, url)
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return models.ImageMetadata{}, fmt.Errorf("save image: %w", err)
	}

	return models.ImageMetadata{
		ID:   name,
		Hash: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}, nil
}

// Remove deletes saved files by name, ignoring ones already gone
func (d *Downloader) Remove(names ...string) {
	for _, name := range names {
		if name == "" || IsExternal(name) {
			continue
		}
		err := os.Remove(filepath.Join(d.Dir, filepath.Base(name)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove image file", "name", name, "error", err)
		}
	}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

func extension(mediaType, url string) string {
	if ext, ok := extByType[mediaType]; ok {
		return ext
	}
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if ext := strings.ToLower(filepath.Ext(clean)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".img"
}

// readAll is io.ReadAll with an upper bound
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
