package pricing

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSellPrice(t *testing.T) {
	c := qt.New(t)

	policy := Policy{Multiplier: 2, RoundingThreshold: 1000, RoundingStep: 50}
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"below threshold rounds to cents", 9.333, 18.67},
		{"at threshold rounds up to step", 500, 1000},
		{"above threshold rounds up to step", 510, 1050},
		{"already a multiple", 1000, 2000},
		{"zero", 0, 0},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			got, err := policy.SellPrice(&test.price)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestSellPriceErrors(t *testing.T) {
	c := qt.New(t)

	_, err := Default().SellPrice(nil)
	c.Assert(err, qt.ErrorIs, ErrNoPrice)

	neg := -1.0
	_, err = Default().SellPrice(&neg)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrice)

	nan := math.NaN()
	_, err = Default().SellPrice(&nan)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrice)

	one := 1.0
	_, err = Policy{}.SellPrice(&one)
	c.Assert(err, qt.ErrorIs, ErrInvalidPolicy)
}

func TestFormat(t *testing.T) {
	c := qt.New(t)

	c.Assert(Format(1050), qt.Equals, "1050")
	c.Assert(Format(18.6), qt.Equals, "18.60")
	c.Assert(Format(0), qt.Equals, "0")
}
