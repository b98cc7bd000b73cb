package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/catalogbot/internal/database"
	"github.com/xelth-com/catalogbot/internal/models"
)

var (
	ctx = context.Background()
	t0  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestDB(c *qt.C) *database.DB {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	c.Assert(err, qt.IsNil)
	sqlDB, err := gdb.DB()
	c.Assert(err, qt.IsNil)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	c.Cleanup(func() { sqlDB.Close() })

	db := database.New(gdb)
	c.Assert(db.Migrate(), qt.IsNil)
	return db
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (k *testClock) now() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.t
}

func (k *testClock) advance(d time.Duration) {
	k.mu.Lock()
	k.t = k.t.Add(d)
	k.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(eventType string, productID uint) {
	n.mu.Lock()
	n.events = append(n.events, eventType)
	n.mu.Unlock()
}

type fixture struct {
	db       *database.DB
	svc      *Service
	clock    *testClock
	notifier *recordingNotifier
	dir      string
}

func newFixture(t *testing.T, opts ...Option) (*qt.C, *fixture) {
	c := qt.New(t)
	f := &fixture{
		db:       newTestDB(c),
		clock:    &testClock{t: t0},
		notifier: &recordingNotifier{},
		dir:      t.TempDir(),
	}
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(f.clock.now),
		WithNotifier(f.notifier),
		WithImagesDir(f.dir),
	}
	f.svc = NewService(f.db, append(base, opts...)...)
	return c, f
}

func ptr[T any](v T) *T { return &v }

func newPayload(url, sku string) *ProductPayload {
	return &ProductPayload{
		ProductURL: url,
		SKU:        sku,
		Name:       ptr("Shirt"),
		Price:      ptr(10.0),
		Currency:   ptr("EUR"),
	}
}

func (f *fixture) create(c *qt.C, p *ProductPayload) *models.Product {
	product, err := f.svc.Create(ctx, p, nil)
	c.Assert(err, qt.IsNil)
	return product
}

func (f *fixture) unscopedProduct(c *qt.C, id uint) models.Product {
	var p models.Product
	c.Assert(f.db.Unscoped().Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped().Order("id")
	}).Preload("Sizes", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped().Order("id")
	}).First(&p, id).Error, qt.IsNil)
	return p
}

func writeFile(c *qt.C, dir, name string) {
	c.Assert(os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644), qt.IsNil)
}

func fileExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
