package catalog

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestProductLifecycleScenario(t *testing.T) {
	c, f := newFixture(t)

	p := newPayload("http://x/1", "A1")
	p.ImageURLs = []string{"http://img/1.jpg"}
	p.AvailableSizes = []string{"S", "M"}
	product := f.create(c, p)
	c.Assert(product.Images, qt.HasLen, 1)
	c.Assert(product.Sizes, qt.HasLen, 2)
	c.Assert(product.IsDeleted(), qt.IsFalse)

	_, err := f.svc.SoftDelete(ctx, product.ID)
	c.Assert(err, qt.IsNil)
	stored := f.unscopedProduct(c, product.ID)
	c.Assert(stored.IsDeleted(), qt.IsTrue)
	c.Assert(stored.ActiveImages(), qt.HasLen, 0)
	c.Assert(stored.ActiveSizes(), qt.HasLen, 0)

	_, err = f.svc.Restore(ctx, product.ID)
	c.Assert(err, qt.IsNil)
	restored, err := f.svc.GetProduct(ctx, product.ID, false)
	c.Assert(err, qt.IsNil)
	c.Assert(restored.Images, qt.HasLen, 1)
	c.Assert(restored.Sizes, qt.HasLen, 2)

	_, err = f.svc.HardDelete(ctx, product.ID)
	c.Assert(err, qt.IsNil)
	_, err = f.svc.GetProduct(ctx, product.ID, true)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)

	c.Assert(f.notifier.events, qt.DeepEquals, []string{EventCreated, EventDeleted, EventRestored, EventPurged})
}
