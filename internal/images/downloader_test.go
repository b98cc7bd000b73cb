package images

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	qt "github.com/frankban/quicktest"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-body")

func newImageServer(c *qt.C) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	})
	mux.HandleFunc("/gzip.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write(pngBytes)
		gz.Close()
	})
	mux.HandleFunc("/br.webp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write(pngBytes)
		bw.Close()
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/huge.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte("x"), 2048))
	})
	mux.HandleFunc("/missing.png", http.NotFound)
	srv := httptest.NewServer(mux)
	c.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(c *qt.C) (*Downloader, string) {
	dir := c.TempDir()
	d := NewDownloader(dir, 1024, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d, dir
}

func TestDownloadSavesImages(t *testing.T) {
	c := qt.New(t)
	srv := newImageServer(c)
	d, dir := newTestDownloader(c)

	metas, err := d.Download(context.Background(), []string{srv.URL + "/a.png", srv.URL + "/gzip.jpg", srv.URL + "/br.webp"})
	c.Assert(err, qt.IsNil)
	c.Assert(metas, qt.HasLen, 3)

	sum := sha256.Sum256(pngBytes)
	want := hex.EncodeToString(sum[:])
	exts := []string{".png", ".jpg", ".webp"}
	for i, m := range metas {
		c.Assert(m.Hash, qt.Equals, want)
		c.Assert(m.Size, qt.Equals, int64(len(pngBytes)))
		c.Assert(strings.HasSuffix(m.ID, exts[i]), qt.IsTrue, qt.Commentf("name %s", m.ID))
		data, err := os.ReadFile(filepath.Join(dir, m.ID))
		c.Assert(err, qt.IsNil)
		c.Assert(data, qt.DeepEquals, pngBytes)
	}
}

func TestDownloadPartialFailure(t *testing.T) {
	c := qt.New(t)
	srv := newImageServer(c)
	d, _ := newTestDownloader(c)

	metas, err := d.Download(context.Background(), []string{srv.URL + "/missing.png", srv.URL + "/a.png", srv.URL + "/page.html"})
	c.Assert(err, qt.IsNil)
	c.Assert(metas, qt.HasLen, 1)
}

func TestDownloadSingleFailureIsNotAnError(t *testing.T) {
	c := qt.New(t)
	srv := newImageServer(c)
	d, _ := newTestDownloader(c)

	metas, err := d.Download(context.Background(), []string{srv.URL + "/page.html"})
	c.Assert(err, qt.IsNil)
	c.Assert(metas, qt.HasLen, 0)
}

func TestDownloadAllFailed(t *testing.T) {
	c := qt.New(t)
	srv := newImageServer(c)
	d, dir := newTestDownloader(c)

	_, err := d.Download(context.Background(), []string{srv.URL + "/page.html", srv.URL + "/huge.png"})
	c.Assert(err, qt.ErrorMatches, `all 2 image downloads failed(.|\n)*`)
	c.Assert(err, qt.ErrorIs, ErrNotImage)
	c.Assert(err, qt.ErrorIs, ErrTooLarge)

	entries, _ := os.ReadDir(dir)
	c.Assert(entries, qt.HasLen, 0)
}

func TestRemove(t *testing.T) {
	c := qt.New(t)
	d, dir := newTestDownloader(c)

	c.Assert(os.WriteFile(filepath.Join(dir, "x.png"), pngBytes, 0o644), qt.IsNil)
	d.Remove("x.png", "gone.png", "https://cdn.example/y.png")
	_, err := os.Stat(filepath.Join(dir, "x.png"))
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestIsExternal(t *testing.T) {
	c := qt.New(t)

	c.Assert(IsExternal("https://cdn.example/a.jpg"), qt.IsTrue)
	c.Assert(IsExternal("HTTP://cdn.example/a.jpg"), qt.IsTrue)
	c.Assert(IsExternal("0b5c1f6e.jpg"), qt.IsFalse)
}
