package catalog

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/xelth-com/catalogbot/internal/models"
)

type stubDownloader struct {
	metas []models.ImageMetadata
	err   error
	calls int
}

func (d *stubDownloader) Download(ctx context.Context, urls []string) ([]models.ImageMetadata, error) {
	d.calls++
	return d.metas, d.err
}

func TestIngestCreatesThenUpdates(t *testing.T) {
	c, f := newFixture(t)

	p := newPayload("https://shop.example/p/1", "SKU-1")
	p.ImageURLs = []string{"https://cdn.example/a.jpg"}
	res, err := f.svc.Ingest(ctx, p, IngestOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Action, qt.Equals, ActionCreated)
	c.Assert(res.MatchType, qt.Equals, MatchNone)

	res, err = f.svc.Ingest(ctx, p, IngestOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Action, qt.Equals, ActionUnchanged)
	c.Assert(res.MatchType, qt.Equals, MatchURL)

	// same SKU under a new URL is matched by SKU
	moved := newPayload("https://shop.example/p/1-moved", "SKU-1")
	moved.Price = ptr(12.0)
	moved.ImageURLs = []string{"https://cdn.example/a.jpg"}
	res, err = f.svc.Ingest(ctx, moved, IngestOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Action, qt.Equals, ActionUpdated)
	c.Assert(res.MatchType, qt.Equals, MatchSKU)
	c.Assert(res.Summary.FieldsUpdated, qt.Equals, 1)
	c.Assert(*res.Product.Price, qt.Equals, 12.0)
}

func TestIngestMatchesPaddedKeys(t *testing.T) {
	c, f := newFixture(t)

	first, err := f.svc.Ingest(ctx, newPayload("https://shop.example/p/1", "A1"), IngestOptions{})
	c.Assert(err, qt.IsNil)

	again := newPayload("https://shop.example/p/1 ", " A1")
	again.Name = ptr("Shirt v2")
	res, err := f.svc.Ingest(ctx, again, IngestOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Action, qt.Equals, ActionUpdated)
	c.Assert(res.MatchType, qt.Equals, MatchURL)
	c.Assert(res.Product.ID, qt.Equals, first.Product.ID)
	c.Assert(res.Product.Name, qt.Equals, "Shirt v2")

	// caller's payload is left as sent
	c.Assert(again.SKU, qt.Equals, " A1")

	m, err := f.svc.FindExistingMatch(ctx, "  https://other.example/x", "A1\t", false)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Type, qt.Equals, MatchSKU)
}

func TestIngestDownloadsImagesForNewProducts(t *testing.T) {
	d := &stubDownloader{metas: []models.ImageMetadata{{ID: "saved.jpg", Hash: "h1", Size: 3}}}
	c, f := newFixture(t, WithDownloader(d))

	p := newPayload("https://shop.example/p/1", "SKU-1")
	p.ImageURLs = []string{"https://cdn.example/a.jpg"}
	res, err := f.svc.Ingest(ctx, p, IngestOptions{DownloadImages: true})
	c.Assert(err, qt.IsNil)
	c.Assert(d.calls, qt.Equals, 1)
	c.Assert(res.Product.Images, qt.HasLen, 1)
	c.Assert(res.Product.Images[0].URL, qt.Equals, "saved.jpg")
	c.Assert(*res.Product.Images[0].FileHash, qt.Equals, "h1")
}

func TestIngestRemovesDownloadsWhenCreateFails(t *testing.T) {
	d := &stubDownloader{metas: []models.ImageMetadata{{ID: "taken.jpg", Hash: "h9", Size: 3}}}
	c, f := newFixture(t, WithDownloader(d))

	owner := newPayload("https://shop.example/p/1", "SKU-1")
	owner.ImageURLs = []string{"taken.jpg"}
	f.create(c, owner)
	writeFile(c, f.dir, "taken.jpg")

	p := newPayload("https://shop.example/p/2", "SKU-2")
	p.ImageURLs = []string{"https://cdn.example/a.jpg"}
	_, err := f.svc.Ingest(ctx, p, IngestOptions{DownloadImages: true})
	c.Assert(errors.Is(err, ErrConflict), qt.IsTrue)
	c.Assert(ConflictField(err), qt.Equals, FieldImageURL)
	c.Assert(fileExists(f.dir, "taken.jpg"), qt.IsFalse)
}

func TestIngestDownloadFailure(t *testing.T) {
	d := &stubDownloader{err: errors.New("all 2 image downloads failed")}
	c, f := newFixture(t, WithDownloader(d))

	p := newPayload("https://shop.example/p/1", "SKU-1")
	p.ImageURLs = []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}
	_, err := f.svc.Ingest(ctx, p, IngestOptions{DownloadImages: true})
	c.Assert(errors.Is(err, ErrExternal), qt.IsTrue)
}
