package utils

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestDeduplicator(t *testing.T) {
	c := qt.New(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeduplicator(5 * time.Minute)
	d.now = func() time.Time { return now }

	c.Assert(d.IsDuplicate(""), qt.IsFalse)
	c.Assert(d.IsDuplicate("req-1"), qt.IsFalse)
	c.Assert(d.IsDuplicate("req-1"), qt.IsTrue)

	now = now.Add(6 * time.Minute)
	c.Assert(d.IsDuplicate("req-1"), qt.IsFalse)

	d.Forget("req-1")
	c.Assert(d.IsDuplicate("req-1"), qt.IsFalse)
}

func TestDeduplicatorPrunesExpired(t *testing.T) {
	c := qt.New(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Minute)
	d.now = func() time.Time { return now }
	d.maxSize = 2

	d.IsDuplicate("a")
	d.IsDuplicate("b")
	now = now.Add(2 * time.Minute)
	d.IsDuplicate("c")

	c.Assert(d.seen, qt.HasLen, 1)
}
