package catalog

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSaveTemplateUpsertsByName(t *testing.T) {
	c, f := newFixture(t)

	first, err := f.svc.SaveTemplate(ctx, "default", "{name}")
	c.Assert(err, qt.IsNil)
	c.Assert(first.Content, qt.Equals, "{name}")

	second, err := f.svc.SaveTemplate(ctx, " default ", "{name} - {price}")
	c.Assert(err, qt.IsNil)
	c.Assert(second.ID, qt.Equals, first.ID)
	c.Assert(second.Content, qt.Equals, "{name} - {price}")

	all, err := f.svc.ListTemplates(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 1)
}

func TestTemplateValidationAndLookup(t *testing.T) {
	c, f := newFixture(t)

	_, err := f.svc.SaveTemplate(ctx, "", "{name}")
	c.Assert(errors.Is(err, ErrValidation), qt.IsTrue)
	_, err = f.svc.SaveTemplate(ctx, "empty", "   ")
	c.Assert(errors.Is(err, ErrValidation), qt.IsTrue)

	_, err = f.svc.GetTemplate(ctx, "missing")
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)
}
