package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// failingDeleter fails for one product and delegates the rest
type failingDeleter struct {
	next   HardDeleter
	failID uint
}

func (d failingDeleter) HardDelete(ctx context.Context, id uint) (bool, error) {
	if id == d.failID {
		return false, fmt.Errorf("disk on fire")
	}
	return d.next.HardDelete(ctx, id)
}

func TestSweepRemovesOnlyExpiredProducts(t *testing.T) {
	c, f := newFixture(t)

	old := f.create(c, newPayload("https://shop.example/old", "OLD"))
	_, err := f.svc.SoftDelete(ctx, old.ID)
	c.Assert(err, qt.IsNil)

	f.clock.advance(20 * 24 * time.Hour)
	recent := f.create(c, newPayload("https://shop.example/recent", "RECENT"))
	_, err = f.svc.SoftDelete(ctx, recent.ID)
	c.Assert(err, qt.IsNil)
	active := f.create(c, newPayload("https://shop.example/active", "ACTIVE"))

	sw := NewSweeper(f.db, f.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sw.now = func() time.Time { return t0.Add(31 * 24 * time.Hour) }

	removed, err := sw.Sweep(ctx, 30)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.Equals, 1)

	_, err = f.svc.GetProduct(ctx, old.ID, true)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)
	_, err = f.svc.GetProduct(ctx, recent.ID, true)
	c.Assert(err, qt.IsNil)
	_, err = f.svc.GetProduct(ctx, active.ID, false)
	c.Assert(err, qt.IsNil)
}

func TestSweepToleratesPerItemFailures(t *testing.T) {
	c, f := newFixture(t)

	var ids []uint
	for i := 0; i < 3; i++ {
		p := f.create(c, newPayload(fmt.Sprintf("https://shop.example/%d", i), fmt.Sprintf("SKU-%d", i)))
		_, err := f.svc.SoftDelete(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		ids = append(ids, p.ID)
	}

	sw := NewSweeper(f.db, failingDeleter{next: f.svc, failID: ids[1]}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sw.now = func() time.Time { return t0.Add(40 * 24 * time.Hour) }

	removed, err := sw.Sweep(ctx, 30)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.Equals, 2)

	_, err = f.svc.GetProduct(ctx, ids[1], true)
	c.Assert(err, qt.IsNil)
}

func TestSweepZeroDaysRemovesAllDeleted(t *testing.T) {
	c, f := newFixture(t)

	p := f.create(c, newPayload("https://shop.example/1", "SKU-1"))
	_, err := f.svc.SoftDelete(ctx, p.ID)
	c.Assert(err, qt.IsNil)

	sw := NewSweeper(f.db, f.svc, nil)
	sw.now = func() time.Time { return t0.Add(time.Second) }
	removed, err := sw.Sweep(ctx, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.Equals, 1)

	_, err = sw.Sweep(ctx, -1)
	c.Assert(errors.Is(err, ErrValidation), qt.IsTrue)
}
