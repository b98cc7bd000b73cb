package models

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"gorm.io/gorm"
)

func TestSortedAxisValues(t *testing.T) {
	c := qt.New(t)

	c.Assert(SortedAxisValues(map[string][]string{"90": nil, "75": nil, "100": nil}), qt.DeepEquals, []string{"75", "90", "100"})
	c.Assert(SortedAxisValues(map[string][]string{"M": nil, "L": nil, "10": nil}), qt.DeepEquals, []string{"10", "L", "M"})
}

func TestCombinationsRoundTrip(t *testing.T) {
	c := qt.New(t)

	row, err := NewCombinationSize(3, "Band", "Cup", map[string][]string{"34": {"B", "C"}})
	c.Assert(err, qt.IsNil)
	c.Assert(row.IsCombination(), qt.IsTrue)
	c.Assert(row.SizeValue, qt.IsNil)

	got, err := row.Combinations()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, map[string][]string{"34": {"B", "C"}})

	empty, err := Size{CombinationData: []byte("null")}.Combinations()
	c.Assert(err, qt.IsNil)
	c.Assert(empty, qt.HasLen, 0)
}

func TestActiveChildren(t *testing.T) {
	c := qt.New(t)

	p := Product{
		Images: []Image{{URL: "a"}, {URL: "b", DeletedAt: gorm.DeletedAt{Valid: true}}},
		Sizes:  []Size{NewSimpleSize(1, "S"), {DeletedAt: gorm.DeletedAt{Valid: true}}},
	}
	c.Assert(p.ActiveImages(), qt.HasLen, 1)
	c.Assert(p.ActiveImages()[0].URL, qt.Equals, "a")
	c.Assert(p.ActiveSizes(), qt.HasLen, 1)
	c.Assert(p.IsDeleted(), qt.IsFalse)
}
